package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"leaguesync/internal/domain"
)

// view is what the templates see. Scores and outcome are framed from the
// recipient's team.
type view struct {
	MyTeam   string
	Opponent string
	When     string
	Court    string
	Phase    string
	Score    string
	Outcome  string
	Golden   bool
	// Withdrawn is set when the recipient's own team rejected its submission
	Withdrawn bool
}

type messageTemplate struct {
	title *template.Template
	body  *template.Template
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

var messages = map[domain.NotificationType]messageTemplate{
	domain.NotificationMatchScheduled: {
		title: mustTemplate("scheduled.title", `{{if .Golden}}Golden set{{else}}Match{{end}} scheduled`),
		body: mustTemplate("scheduled.body",
			`{{.MyTeam}} vs {{.Opponent}}{{with .When}}, {{.}}{{end}}{{with .Court}}, {{.}}{{end}}{{with .Phase}} ({{.}}){{end}}`),
	},
	domain.NotificationMatchResult: {
		title: mustTemplate("result.title", `{{if .Golden}}Golden set{{else}}Match{{end}} result`),
		body: mustTemplate("result.body",
			`{{.MyTeam}} vs {{.Opponent}}{{with .Score}}: {{.}}{{end}}{{with .Outcome}} ({{.}}){{end}}`),
	},
	domain.NotificationResultEntered: {
		title: mustTemplate("entered.title", `Result to confirm`),
		body: mustTemplate("entered.body",
			`{{.Opponent}} submitted {{.Score}} for {{.MyTeam}} vs {{.Opponent}}. Confirm or reject it.`),
	},
	domain.NotificationResultConfirmed: {
		title: mustTemplate("confirmed.title", `Result confirmed`),
		body: mustTemplate("confirmed.body",
			`{{.MyTeam}} vs {{.Opponent}}: {{.Score}}{{with .Outcome}} ({{.}}){{end}}`),
	},
	domain.NotificationResultRejected: {
		title: mustTemplate("rejected.title", `Result rejected`),
		body: mustTemplate("rejected.body",
			`{{if .Withdrawn}}{{.MyTeam}} withdrew its result for{{else}}{{.Opponent}} rejected the result of{{end}} {{.MyTeam}} vs {{.Opponent}}. Submit it again.`),
	},
}

func render(typ domain.NotificationType, v view) (title, body string, err error) {
	tmpl, ok := messages[typ]
	if !ok {
		return "", "", fmt.Errorf("no template for notification type %q", typ)
	}

	var buf bytes.Buffer
	if err := tmpl.title.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("failed to render title: %w", err)
	}
	title = buf.String()

	buf.Reset()
	if err := tmpl.body.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("failed to render message: %w", err)
	}
	return title, buf.String(), nil
}

// buildView frames m for a subscriber of side
func buildView(typ domain.NotificationType, m *domain.Match, side domain.Side, names map[string]string) view {
	v := view{
		MyTeam:   names[m.TeamID(side)],
		Opponent: names[m.TeamID(side.Other())],
		Court:    m.Court,
		Phase:    m.Phase,
		Golden:   m.IsGoldenSet,
	}

	var when []string
	if m.Date != nil {
		when = append(when, m.Date.Format("02/01/2006"))
	}
	if m.Time != "" {
		when = append(when, m.Time)
	}
	v.When = strings.Join(when, " ")

	scoreA, scoreB, result := m.OfficialScoreA, m.OfficialScoreB, m.OfficialResult
	if typ == domain.NotificationResultEntered || typ == domain.NotificationResultConfirmed {
		scoreA, scoreB, result = m.UserScoreA, m.UserScoreB, m.Result
	}
	v.Score = formatScore(scoreA, scoreB, side)
	v.Outcome = outcome(result, side)
	return v
}

// formatScore lists sets as "mine-theirs"
func formatScore(scoreA, scoreB []string, side domain.Side) string {
	n := min(len(scoreA), len(scoreB))
	sets := make([]string, 0, n)
	for i := 0; i < n; i++ {
		mine, theirs := scoreA[i], scoreB[i]
		if side == domain.SideB {
			mine, theirs = theirs, mine
		}
		sets = append(sets, mine+"-"+theirs)
	}
	return strings.Join(sets, ", ")
}

func outcome(r domain.Result, side domain.Side) string {
	switch r {
	case domain.ResultDraw:
		return "draw"
	case domain.ResultTeamA:
		if side == domain.SideA {
			return "won"
		}
		return "lost"
	case domain.ResultTeamB:
		if side == domain.SideB {
			return "won"
		}
		return "lost"
	}
	return ""
}
