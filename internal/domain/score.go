package domain

import (
	"strconv"
	"strings"
)

// TallySets counts sets won by each side. A set counts only when both cells are
// integers and one is strictly greater; ties and unreadable sets count for neither.
func TallySets(scoreA, scoreB []string) (winsA, winsB int) {
	n := min(len(scoreA), len(scoreB))
	for i := 0; i < n; i++ {
		a, errA := strconv.Atoi(strings.TrimSpace(scoreA[i]))
		b, errB := strconv.Atoi(strings.TrimSpace(scoreB[i]))
		if errA != nil || errB != nil {
			continue
		}
		switch {
		case a > b:
			winsA++
		case b > a:
			winsB++
		}
	}
	return winsA, winsB
}

// MajorityResult returns the side with strictly more set wins, or onTie otherwise
func MajorityResult(scoreA, scoreB []string, onTie Result) Result {
	winsA, winsB := TallySets(scoreA, scoreB)
	switch {
	case winsA > winsB:
		return ResultTeamA
	case winsB > winsA:
		return ResultTeamB
	}
	return onTie
}

// ValidScores reports whether both sequences are non-empty, equal length and numeric
func ValidScores(scoreA, scoreB []string) bool {
	if len(scoreA) == 0 || len(scoreA) != len(scoreB) {
		return false
	}
	for i := range scoreA {
		if !isScore(scoreA[i]) || !isScore(scoreB[i]) {
			return false
		}
	}
	return true
}

func isScore(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n >= 0
}
