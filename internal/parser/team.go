package parser

import (
	"regexp"
	"strings"

	"leaguesync/internal/domain"
)

var (
	teamSuffixRe   = regexp.MustCompile(`(?i)\s*\bteam\s+([abg])\s*$`)
	goldenMarkerRe = regexp.MustCompile(`(?i)team g`)
)

// TeamMatch is a pairing side resolved against the roster
type TeamMatch struct {
	Name string
	Code domain.TeamCode
}

// FindTeamInText strips the "Team A|B|G" suffix and resolves what remains
// against knownTeams. Resolution order: exact, case-insensitive exact, then
// substring containment in either direction. Ties go to the first entry in
// knownTeams. Without a match the cleaned text is returned as the name.
func FindTeamInText(text string, knownTeams []string) TeamMatch {
	cleaned := strings.TrimSpace(text)
	code := domain.TeamCodeNone

	if loc := goldenMarkerRe.FindStringIndex(cleaned); loc != nil {
		code = domain.TeamCodeG
		cleaned = strings.TrimSpace(cleaned[:loc[0]])
	} else if m := teamSuffixRe.FindStringSubmatchIndex(cleaned); m != nil {
		code = domain.TeamCode(strings.ToUpper(cleaned[m[2]:m[3]]))
		cleaned = strings.TrimSpace(cleaned[:m[0]])
	}

	return TeamMatch{Name: resolveName(cleaned, knownTeams), Code: code}
}

func resolveName(cleaned string, knownTeams []string) string {
	if cleaned == "" {
		return cleaned
	}

	for _, name := range knownTeams {
		if name == cleaned {
			return name
		}
	}
	for _, name := range knownTeams {
		if strings.EqualFold(name, cleaned) {
			return name
		}
	}

	lower := strings.ToLower(cleaned)
	for _, name := range knownTeams {
		candidate := strings.ToLower(strings.TrimSpace(name))
		if candidate == "" {
			continue
		}
		if strings.Contains(lower, candidate) || strings.Contains(candidate, lower) {
			return name
		}
	}

	return cleaned
}
