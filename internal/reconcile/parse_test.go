package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tariff-cli/internal/model"
)

func parseOptions() []model.ReconciliationOption {
	return []model.ReconciliationOption{
		{Code: "080390", FormattedCode: "0803.90", Description: "Bananas, dried", Source: model.SourcePrimary, MatchType: model.MatchExact},
		{Code: "080310", FormattedCode: "0803.10", Description: "Plantains, fresh", Source: model.SourcePrimary, MatchType: model.MatchExact},
		{Code: "080450", FormattedCode: "0804.50", Description: "Guavas, mangoes and mangosteens", Source: model.SourceSecondary, MatchType: model.MatchExact},
	}
}

func TestSelectOption_ByOptionIndex(t *testing.T) {
	opt, strategy := SelectOption("OPTION: 2\nCONFIDENCE: high\nREASONING: Clearly plantains.", parseOptions())
	require.NotNil(t, opt)
	assert.Equal(t, "option_index", strategy)
	assert.Equal(t, "080310", opt.Code)
}

func TestSelectOption_IndexOutOfRangeFallsThrough(t *testing.T) {
	opt, strategy := SelectOption("90", parseOptions())
	assert.Nil(t, opt)
	assert.Empty(t, strategy)
}

func TestSelectOption_ByCodeRun(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"dotted formatted code", "The best match is 0803.90 here.", "080390"},
		{"bare digits", "Going with 080310 on this one.", "080310"},
		{"six-digit prefix of longer code", "The full national line 0804500010 applies.", "080450"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, strategy := SelectOption(tt.reply, parseOptions())
			require.NotNil(t, opt)
			assert.Equal(t, "code_run", strategy)
			assert.Equal(t, tt.want, opt.Code)
		})
	}
}

func TestSelectOption_ByDescriptionWord(t *testing.T) {
	opt, strategy := SelectOption("These look like dried bananas to me.", parseOptions())
	require.NotNil(t, opt)
	assert.Equal(t, "description_word", strategy)
	assert.Equal(t, "080390", opt.Code)
}

func TestSelectOption_DescriptionWordPrefersMostOverlap(t *testing.T) {
	opt, _ := SelectOption("Mangoes, specifically mangosteens and guavas.", parseOptions())
	require.NotNil(t, opt)
	assert.Equal(t, "080450", opt.Code)
}

func TestSelectOption_RawScanRecoversEmbeddedCode(t *testing.T) {
	// Earlier strategies all miss: no small integer, the digit run neither
	// equals nor prefixes any option, and no description words overlap.
	reply := "Settled after review: 12308039045 confirms it."
	opt, strategy := SelectOption(reply, parseOptions())
	require.NotNil(t, opt)
	assert.Equal(t, "raw_scan", strategy)
	assert.Equal(t, "080390", opt.Code)
}

func TestSelectOption_AllStrategiesFail(t *testing.T) {
	opt, strategy := SelectOption("Unable to settle on one.", parseOptions())
	assert.Nil(t, opt)
	assert.Empty(t, strategy)
}

func TestSelectOption_EmptyReply(t *testing.T) {
	opt, strategy := SelectOption("", parseOptions())
	assert.Nil(t, opt)
	assert.Empty(t, strategy)
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{"high", "CONFIDENCE: high", 0.9},
		{"low", "CONFIDENCE: low", 0.4},
		{"medium", "CONFIDENCE: medium", 0.7},
		{"absent defaults to medium", "OPTION: 1", 0.7},
		{"empty defaults to medium", "", 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseConfidence(tt.reply), 0.001)
		})
	}
}
