// Package gateway provides a uniform call interface over the reasoning
// backends. Calls go to the primary backend first; on any failure the
// secondary backend is tried once with a translated model alias.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/pkg/anthropic"
	"github.com/sells-group/tariff-cli/pkg/perplexity"
)

// ErrUnavailable is returned when both reasoning backends fail. Callers must
// treat an empty or unparseable answer as a local parsing failure, never as
// this transport failure.
var ErrUnavailable = eris.New("gateway: all reasoning backends unavailable")

// Caller is the narrow interface the pipeline stages depend on.
type Caller interface {
	Call(ctx context.Context, system, user, model string) (string, error)
}

// Backend completes a single prompt against one reasoning service.
type Backend interface {
	Name() string
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Gateway routes calls to a primary backend with a one-shot fallback.
type Gateway struct {
	primary   Backend
	secondary Backend

	// aliases translates a primary model name to the secondary backend's
	// equivalent. Unmapped models fall back to defaultAlias.
	aliases      map[string]string
	defaultAlias string
	timeout      time.Duration
}

// New creates a Gateway over the given backends.
func New(primary, secondary Backend, aliases map[string]string, defaultAlias string, timeout time.Duration) *Gateway {
	if aliases == nil {
		aliases = map[string]string{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		primary:      primary,
		secondary:    secondary,
		aliases:      aliases,
		defaultAlias: defaultAlias,
		timeout:      timeout,
	}
}

// Call sends the prompt to the primary backend; on failure it retries once
// against the secondary backend with a translated model alias. A timeout is
// treated identically to any other transport failure.
func (g *Gateway) Call(ctx context.Context, system, user, model string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, primaryErr := g.primary.Complete(callCtx, model, system, user)
	if primaryErr == nil {
		return text, nil
	}

	zap.L().Warn("gateway: primary backend failed, trying fallback",
		zap.String("backend", g.primary.Name()),
		zap.String("model", model),
		zap.Error(primaryErr),
	)

	if g.secondary == nil {
		return "", eris.Wrap(ErrUnavailable, primaryErr.Error())
	}

	alias, ok := g.aliases[model]
	if !ok || alias == "" {
		alias = g.defaultAlias
	}

	fbCtx, fbCancel := context.WithTimeout(ctx, g.timeout)
	defer fbCancel()

	text, fallbackErr := g.secondary.Complete(fbCtx, alias, system, user)
	if fallbackErr == nil {
		return text, nil
	}

	zap.L().Warn("gateway: fallback backend failed",
		zap.String("backend", g.secondary.Name()),
		zap.String("model", alias),
		zap.Error(fallbackErr),
	)

	return "", eris.Wrapf(ErrUnavailable, "primary: %v; fallback: %v", primaryErr, fallbackErr)
}

// AnthropicBackend adapts pkg/anthropic to the Backend interface.
type AnthropicBackend struct {
	Client    anthropic.Client
	MaxTokens int64
}

// Name identifies the backend in logs.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Complete sends one user message with an optional system prompt.
func (b *AnthropicBackend) Complete(ctx context.Context, model, system, user string) (string, error) {
	maxTokens := b.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	resp, err := b.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	return text, nil
}

// PerplexityBackend adapts pkg/perplexity to the Backend interface.
type PerplexityBackend struct {
	Client    perplexity.Client
	MaxTokens int
}

// Name identifies the backend in logs.
func (b *PerplexityBackend) Name() string { return "perplexity" }

// Complete sends system+user messages as a chat completion.
func (b *PerplexityBackend) Complete(ctx context.Context, model, system, user string) (string, error) {
	var messages []perplexity.Message
	if system != "" {
		messages = append(messages, perplexity.Message{Role: "system", Content: system})
	}
	messages = append(messages, perplexity.Message{Role: "user", Content: user})

	req := perplexity.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if b.MaxTokens > 0 {
		req.MaxTokens = &b.MaxTokens
	}

	resp, err := b.Client.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}
