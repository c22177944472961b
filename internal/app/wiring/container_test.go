package wiring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simapp "github.com/megamake/roleplay/internal/domains/sim/app"
	"github.com/megamake/roleplay/internal/platform/config"
)

func TestNewWithStubProvider(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.Provider = "stub"

	ctr, err := New(&cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, ctr.Sim)
	assert.True(t, ctr.Policy.NetEnabled)

	start, err := ctr.Sim.StartSession(simapp.StartSessionRequest{})
	require.NoError(t, err)
	assert.Empty(t, start.View.Turns)

	token, err := ctr.Tokens.Issue(start.View.SessionID, ctr.Clock.NowUTC())
	require.NoError(t, err)
	id, err := ctr.Tokens.Parse(token, ctr.Clock.NowUTC())
	require.NoError(t, err)
	assert.Equal(t, start.View.SessionID, id)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.Provider = "nope"

	_, err := New(&cfg, nil)
	assert.Error(t, err)
}
