package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBackend implements Backend for testing.
type mockBackend struct {
	name   string
	reply  string
	err    error
	models []string // models received, in call order
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Complete(_ context.Context, model, _, _ string) (string, error) {
	m.models = append(m.models, model)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func TestCall_PrimarySuccess(t *testing.T) {
	primary := &mockBackend{name: "primary", reply: "080390"}
	secondary := &mockBackend{name: "secondary", reply: "unused"}
	gw := New(primary, secondary, nil, "sonar-pro", time.Second)

	text, err := gw.Call(context.Background(), "sys", "user", "claude-haiku-4-5-20251001")
	require.NoError(t, err)
	assert.Equal(t, "080390", text)
	assert.Equal(t, []string{"claude-haiku-4-5-20251001"}, primary.models)
	assert.Empty(t, secondary.models, "secondary must not be called when primary succeeds")
}

func TestCall_FallbackTranslatesAlias(t *testing.T) {
	primary := &mockBackend{name: "primary", err: eris.New("rate limited")}
	secondary := &mockBackend{name: "secondary", reply: "080390"}
	aliases := map[string]string{"claude-haiku-4-5-20251001": "sonar"}
	gw := New(primary, secondary, aliases, "sonar-pro", time.Second)

	text, err := gw.Call(context.Background(), "sys", "user", "claude-haiku-4-5-20251001")
	require.NoError(t, err)
	assert.Equal(t, "080390", text)
	assert.Equal(t, []string{"sonar"}, secondary.models)
}

func TestCall_FallbackUsesDefaultAliasForUnmappedModel(t *testing.T) {
	primary := &mockBackend{name: "primary", err: eris.New("boom")}
	secondary := &mockBackend{name: "secondary", reply: "ok"}
	gw := New(primary, secondary, map[string]string{"other-model": "sonar"}, "sonar-pro", time.Second)

	_, err := gw.Call(context.Background(), "sys", "user", "claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, []string{"sonar-pro"}, secondary.models)
}

func TestCall_BothBackendsFail(t *testing.T) {
	primary := &mockBackend{name: "primary", err: eris.New("primary down")}
	secondary := &mockBackend{name: "secondary", err: eris.New("fallback down")}
	gw := New(primary, secondary, nil, "sonar-pro", time.Second)

	_, err := gw.Call(context.Background(), "sys", "user", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "primary down")
	assert.Contains(t, err.Error(), "fallback down")
}

func TestCall_NoSecondaryBackend(t *testing.T) {
	primary := &mockBackend{name: "primary", err: eris.New("down")}
	gw := New(primary, nil, nil, "", time.Second)

	_, err := gw.Call(context.Background(), "sys", "user", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNew_Defaults(t *testing.T) {
	gw := New(&mockBackend{name: "p"}, nil, nil, "", 0)
	assert.Equal(t, 30*time.Second, gw.timeout)
	assert.NotNil(t, gw.aliases)
}
