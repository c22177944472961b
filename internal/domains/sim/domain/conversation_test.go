package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractsim "github.com/megamake/roleplay/internal/contracts/v1/sim"
)

func TestHistoryStartsWithPersona(t *testing.T) {
	h := NewHistory(PersonaTurn())

	turns := h.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, contractsim.RoleSystem, turns[0].Role)
	assert.Contains(t, turns[0].Content, "You are Sam Richards")
	assert.False(t, h.PendingReply())
	assert.NoError(t, Validate(turns))
}

func TestHistoryAlternation(t *testing.T) {
	h := NewHistory(PersonaTurn())

	require.NoError(t, h.AppendUser("Hello Sam"))
	assert.True(t, h.PendingReply())

	err := h.AppendUser("second user turn")
	assert.Error(t, err, "user turn must not follow an unanswered user turn")

	require.NoError(t, h.AppendAssistant("We've always done it this way."))
	assert.Error(t, h.AppendAssistant("again"), "assistant turn must follow a user turn")

	turns := h.Turns()
	assert.Equal(t, []contractsim.TurnV1{
		PersonaTurn(),
		{Role: contractsim.RoleUser, Content: "Hello Sam"},
		{Role: contractsim.RoleAssistant, Content: "We've always done it this way."},
	}, turns)
	assert.Equal(t, 1, h.CompletedTurns())
	assert.NoError(t, Validate(turns))
}

func TestHistoryKeepsEmptyUserText(t *testing.T) {
	h := NewHistory(PersonaTurn())
	require.NoError(t, h.AppendUser(""))

	text, ok := h.LastUser()
	assert.True(t, ok)
	assert.Equal(t, "", text)
	assert.Equal(t, 2, h.Len())
}

func TestHistoryPersonaSurvivesManyTurns(t *testing.T) {
	h := NewHistory(PersonaTurn())
	for i := 0; i < 50; i++ {
		require.NoError(t, h.AppendUser("push"))
		require.NoError(t, h.AppendAssistant("no"))
	}
	turns := h.Turns()
	assert.Equal(t, PersonaTurn(), turns[0])
	assert.Len(t, turns, 101)
	assert.NoError(t, Validate(turns))
}

func TestTurnsReturnsCopy(t *testing.T) {
	h := NewHistory(PersonaTurn())
	turns := h.Turns()
	turns[0].Content = "mutated"
	assert.NotEqual(t, "mutated", h.Turns()[0].Content)
}

func TestValidateRejectsBrokenOrder(t *testing.T) {
	user := contractsim.TurnV1{Role: contractsim.RoleUser, Content: "u"}
	asst := contractsim.TurnV1{Role: contractsim.RoleAssistant, Content: "a"}

	assert.Error(t, Validate(nil))
	assert.Error(t, Validate([]contractsim.TurnV1{user}))
	assert.Error(t, Validate([]contractsim.TurnV1{PersonaTurn(), asst}))
	assert.Error(t, Validate([]contractsim.TurnV1{PersonaTurn(), user, user}))
	assert.Error(t, Validate([]contractsim.TurnV1{PersonaTurn(), PersonaTurn()}))
}
