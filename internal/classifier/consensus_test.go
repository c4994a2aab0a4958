package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCaller replays canned replies in call order. The first call is
// always the information-gathering call, then one vote call per model.
type scriptedCaller struct {
	replies []string
	errs    []error
	n       int
}

func (c *scriptedCaller) Call(_ context.Context, _, _, _ string) (string, error) {
	i := c.n
	c.n++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	var reply string
	if i < len(c.replies) {
		reply = c.replies[i]
	}
	return reply, nil
}

func testRoster() Roster {
	return Roster{Models: []ModelSpec{
		{Model: "model-a", Alias: "sonar"},
		{Model: "model-b", Alias: "sonar"},
		{Model: "model-c", Alias: "sonar-pro"},
	}}
}

func TestClassify_RanksByVotes(t *testing.T) {
	gw := &scriptedCaller{replies: []string{
		"Bananas are a tropical fruit.",
		"080390",
		"080310",
		"080390",
	}}
	c := New(gw, testRoster(), time.Millisecond)

	result := c.Classify(context.Background(), "dried bananas")
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "080390", result.Candidates[0].Code)
	assert.Equal(t, 2, result.Candidates[0].Votes)
	assert.Equal(t, "080310", result.Candidates[1].Code)
	assert.Equal(t, 1, result.Candidates[1].Votes)
	assert.Equal(t, "Bananas are a tropical fruit.", result.ProductInfo)
}

func TestClassify_TieKeepsFirstSeenOrder(t *testing.T) {
	gw := &scriptedCaller{replies: []string{
		"info",
		"080310",
		"080390",
		"not a code",
	}}
	c := New(gw, testRoster(), time.Millisecond)

	result := c.Classify(context.Background(), "bananas")
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "080310", result.Candidates[0].Code, "tied codes keep first-seen order")
	assert.Equal(t, "080390", result.Candidates[1].Code)
}

func TestClassify_InfoFailureUsesFallbackText(t *testing.T) {
	gw := &scriptedCaller{
		replies: []string{"", "080390", "080390", "080390"},
		errs:    []error{eris.New("backend down")},
	}
	c := New(gw, testRoster(), time.Millisecond)

	result := c.Classify(context.Background(), "dried bananas")
	assert.Equal(t, "Product: dried bananas\nNo additional product information available.", result.ProductInfo)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 3, result.Candidates[0].Votes)
}

func TestClassify_FailedVotesContributeNothing(t *testing.T) {
	gw := &scriptedCaller{
		replies: []string{"info", "080390", "", "I am not sure about this one."},
		errs:    []error{nil, nil, eris.New("timeout")},
	}
	c := New(gw, testRoster(), time.Millisecond)

	result := c.Classify(context.Background(), "bananas")
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "080390", result.Candidates[0].Code)
	assert.Equal(t, 1, result.Candidates[0].Votes)
}

func TestClassify_AllVotesFailIsEmptyNotError(t *testing.T) {
	gw := &scriptedCaller{errs: []error{
		eris.New("down"),
		eris.New("down"),
		eris.New("down"),
		eris.New("down"),
	}}
	c := New(gw, testRoster(), time.Millisecond)

	result := c.Classify(context.Background(), "bananas")
	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.ProductInfo)
}

func TestClassify_RecordsRawAnswers(t *testing.T) {
	gw := &scriptedCaller{replies: []string{"info", "The code is 080390.", "080310", "080390"}}
	c := New(gw, testRoster(), time.Millisecond)

	result := c.Classify(context.Background(), "bananas")
	assert.Equal(t, "The code is 080390.", result.Answers["model-a"])
	assert.Equal(t, "080310", result.Answers["model-b"])
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare code", "080390", "080390"},
		{"code in prose", "The correct classification is 080390.", "080390"},
		{"last run wins", "Either 848180 or 848190 applies.", "848190"},
		{"dotted code has no six-digit run", "0803.90", ""},
		{"no digits", "I cannot classify this.", ""},
		{"empty", "", ""},
		{"longer run yields its prefix", "12308039045", "123080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.reply))
		})
	}
}
