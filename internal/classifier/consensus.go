// Package classifier implements Stage 1: multi-model consensus classification
// of a product description into candidate 6-digit HS codes.
package classifier

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/tariff-cli/internal/gateway"
	"github.com/sells-group/tariff-cli/internal/model"
)

const infoSystemPrompt = `You are a customs classification assistant. Answer the questions about the product factually and concisely. If a detail is unknown, say "unknown".`

const infoUserPrompt = `Product: %s

Answer each question on its own line:
1. What material is the product primarily made of?
2. What is its function or intended use?
3. Is it packaged for retail sale or in bulk?
4. Does it contain electrical or mechanical components?
5. What is its state of processing (raw, semi-processed, finished)?`

const voteSystemPrompt = `You are a customs classification expert. Given a product description, respond with the 6-digit HS code that best classifies it. Respond with exactly 6 digits and nothing else.`

const voteUserPrompt = `Product: %s

Product information:
%s

Respond with exactly 6 digits.`

// hsCodeRun matches a consecutive 6-digit run.
var hsCodeRun = regexp.MustCompile(`\d{6}`)

// Classifier runs the Stage-1 consensus vote.
type Classifier struct {
	gw      gateway.Caller
	roster  Roster
	limiter *rate.Limiter
}

// New creates a Classifier. callDelay paces the per-model vote calls to
// respect external rate limits.
func New(gw gateway.Caller, roster Roster, callDelay time.Duration) *Classifier {
	if callDelay <= 0 {
		callDelay = 500 * time.Millisecond
	}
	if len(roster.Models) == 0 {
		roster = DefaultRoster()
	}
	return &Classifier{
		gw:      gw,
		roster:  roster,
		limiter: rate.NewLimiter(rate.Every(callDelay), 1),
	}
}

// Classify gathers product information and collects one 6-digit vote per
// roster model. It never aborts the pipeline: a failed information call
// substitutes a minimal fallback text, failed vote calls simply contribute no
// vote, and an empty candidate list is a valid "no consensus" outcome.
func (c *Classifier) Classify(ctx context.Context, product string) *model.Stage1Result {
	result := &model.Stage1Result{
		Answers: make(map[string]string),
	}

	info, err := c.gw.Call(ctx, infoSystemPrompt, fmt.Sprintf(infoUserPrompt, product), c.roster.Models[0].Model)
	if err != nil || info == "" {
		zap.L().Warn("classifier: information gathering failed, using fallback",
			zap.String("product", product),
			zap.Error(err),
		)
		info = fmt.Sprintf("Product: %s\nNo additional product information available.", product)
	}
	result.ProductInfo = info

	// Votes are collected sequentially with a pacing delay so ordering is
	// deterministic given deterministic model replies.
	votes := make(map[string]int)
	var order []string // first-seen order of codes, for tie-breaking

	for _, spec := range c.roster.Models {
		if err := c.limiter.Wait(ctx); err != nil {
			break
		}

		reply, err := c.gw.Call(ctx, voteSystemPrompt, fmt.Sprintf(voteUserPrompt, product, info), spec.Model)
		if err != nil {
			zap.L().Warn("classifier: vote call failed",
				zap.String("model", spec.Model),
				zap.Error(err),
			)
			continue
		}
		result.Answers[spec.Model] = reply

		code := ExtractCode(reply)
		if code == "" {
			zap.L().Debug("classifier: no 6-digit run in reply",
				zap.String("model", spec.Model),
				zap.String("reply", reply),
			)
			continue
		}

		if _, seen := votes[code]; !seen {
			order = append(order, code)
		}
		votes[code]++
	}

	result.Candidates = rankVotes(votes, order)

	zap.L().Info("classifier: consensus vote complete",
		zap.String("product", product),
		zap.Int("models", len(c.roster.Models)),
		zap.Int("candidates", len(result.Candidates)),
	)

	return result
}

// ExtractCode returns the last 6-consecutive-digit run in the reply, ignoring
// any digits embedded in explanatory prose before it. Returns "" when the
// reply contains no 6-digit run.
func ExtractCode(reply string) string {
	matches := hsCodeRun.FindAllString(reply, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// rankVotes sorts codes by descending vote count, preserving first-seen order
// among ties.
func rankVotes(votes map[string]int, order []string) []model.Candidate {
	candidates := make([]model.Candidate, 0, len(order))
	for _, code := range order {
		candidates = append(candidates, model.Candidate{Code: code, Votes: votes[code]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Votes > candidates[j].Votes
	})
	return candidates
}
