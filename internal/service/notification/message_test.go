package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaguesync/internal/domain"
)

func TestRender(t *testing.T) {
	m := &domain.Match{
		TeamAID:     "a",
		TeamBID:     "b",
		Court:       "Court 2",
		IsGoldenSet: true,
		UserScoreA:  []string{"15"},
		UserScoreB:  []string{"13"},
		Result:      domain.ResultTeamA,
	}
	names := map[string]string{"a": "Club X", "b": "Club Y"}

	tests := []struct {
		typ   domain.NotificationType
		side  domain.Side
		title string
		body  string
	}{
		{domain.NotificationMatchScheduled, domain.SideA, "Golden set scheduled", "Club X vs Club Y, Court 2"},
		{domain.NotificationMatchResult, domain.SideB, "Golden set result", "Club Y vs Club X"},
		{domain.NotificationResultConfirmed, domain.SideB, "Result confirmed", "Club Y vs Club X: 13-15 (lost)"},
		{domain.NotificationResultRejected, domain.SideA, "Result rejected", "Club Y rejected the result of Club X vs Club Y. Submit it again."},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			title, body, err := render(tt.typ, buildView(tt.typ, m, tt.side, names))
			require.NoError(t, err)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.body, body)
		})
	}

	withdrawn := buildView(domain.NotificationResultRejected, m, domain.SideA, names)
	withdrawn.Withdrawn = true
	_, body, err := render(domain.NotificationResultRejected, withdrawn)
	require.NoError(t, err)
	assert.Equal(t, "Club X withdrew its result for Club X vs Club Y. Submit it again.", body)

	_, _, err = render("unknown", view{})
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "won", outcome(domain.ResultTeamB, domain.SideB))
	assert.Equal(t, "lost", outcome(domain.ResultTeamB, domain.SideA))
	assert.Equal(t, "draw", outcome(domain.ResultDraw, domain.SideA))
	assert.Equal(t, "", outcome(domain.ResultPending, domain.SideA))
}
