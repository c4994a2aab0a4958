package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/model"
)

// Strategy attempts to map an arbiter reply to one of the offered options.
// Strategies are pure: same inputs, same result, no side effects.
type Strategy struct {
	Name    string
	Attempt func(reply string, options []model.ReconciliationOption) *model.ReconciliationOption
}

// Strategies is the ordered parse cascade. Each strategy runs only if every
// earlier one yielded nothing.
var Strategies = []Strategy{
	{Name: "option_index", Attempt: byOptionIndex},
	{Name: "code_run", Attempt: byCodeRun},
	{Name: "description_word", Attempt: byDescriptionWord},
	{Name: "raw_scan", Attempt: byRawScan},
}

// SelectOption runs the cascade and returns the matched option plus the name
// of the strategy that matched, or (nil, "") when every strategy fails.
func SelectOption(reply string, options []model.ReconciliationOption) (*model.ReconciliationOption, string) {
	for _, s := range Strategies {
		if opt := s.Attempt(reply, options); opt != nil {
			return opt, s.Name
		}
	}
	return nil, ""
}

var smallInt = regexp.MustCompile(`\b(\d{1,2})\b`)

// byOptionIndex extracts the first small integer in the reply and uses it as
// a 1-based option index.
func byOptionIndex(reply string, options []model.ReconciliationOption) *model.ReconciliationOption {
	m := smallInt.FindString(reply)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 || n > len(options) {
		return nil
	}
	return &options[n-1]
}

var codeRun = regexp.MustCompile(`[\d.]{4,}`)

// byCodeRun extracts digit/dot runs from the reply and matches them against
// each option's raw code, formatted code, de-dotted formatted code, or first
// six digits.
func byCodeRun(reply string, options []model.ReconciliationOption) *model.ReconciliationOption {
	runs := codeRun.FindAllString(reply, -1)
	for _, run := range runs {
		normalized := catalog.Normalize(run)
		for i, opt := range options {
			optCode := catalog.Normalize(opt.Code)
			optFormatted := catalog.Normalize(opt.FormattedCode)
			switch {
			case run == opt.Code || run == opt.FormattedCode:
				return &options[i]
			case normalized != "" && (normalized == optCode || normalized == optFormatted):
				return &options[i]
			case len(normalized) >= 6 && len(optCode) >= 6 && normalized[:6] == optCode[:6]:
				return &options[i]
			}
		}
	}
	return nil
}

var wordRe = regexp.MustCompile(`[a-zA-Z]{4,}`)

// byDescriptionWord fuzzy-matches words of at least four characters from the
// reply against each option's description, picking the option with the most
// overlapping words.
func byDescriptionWord(reply string, options []model.ReconciliationOption) *model.ReconciliationOption {
	words := wordRe.FindAllString(strings.ToLower(reply), -1)
	if len(words) == 0 {
		return nil
	}

	best := -1
	bestScore := 0
	for i, opt := range options {
		desc := strings.ToLower(opt.Description)
		score := 0
		for _, w := range words {
			if strings.Contains(desc, w) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return &options[best]
}

// byRawScan scans the entire raw reply for any option's exact code substring.
// Last-resort strategy: recovers selections buried in prose that the earlier
// strategies missed.
func byRawScan(reply string, options []model.ReconciliationOption) *model.ReconciliationOption {
	for i, opt := range options {
		if opt.Code != "" && strings.Contains(reply, opt.Code) {
			return &options[i]
		}
		if opt.FormattedCode != "" && strings.Contains(reply, opt.FormattedCode) {
			return &options[i]
		}
		dedotted := catalog.Normalize(opt.FormattedCode)
		if dedotted != "" && strings.Contains(reply, dedotted) {
			return &options[i]
		}
	}
	return nil
}

// ParseConfidence extracts a high/medium/low confidence label from the reply
// and maps it to a 0..1 score. An absent label defaults to medium.
func ParseConfidence(reply string) float64 {
	lower := strings.ToLower(reply)
	switch {
	case strings.Contains(lower, "high"):
		return 0.9
	case strings.Contains(lower, "low"):
		return 0.4
	case strings.Contains(lower, "medium"):
		return 0.7
	default:
		return 0.7
	}
}
