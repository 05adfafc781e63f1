package domain

import (
	"strconv"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
)

func TestMajorityResult(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		onTie    Result
		expected Result
	}{
		{"two sets to A", []string{"21", "21"}, []string{"15", "18"}, ResultDraw, ResultTeamA},
		{"one each is a draw", []string{"21", "19"}, []string{"18", "21"}, ResultDraw, ResultDraw},
		{"one each pending for golden", []string{"21", "19"}, []string{"18", "21"}, ResultPending, ResultPending},
		{"B wins decider", []string{"21", "10", "12"}, []string{"19", "21", "15"}, ResultDraw, ResultTeamB},
		{"tied set counts for neither", []string{"20", "21"}, []string{"20", "10"}, ResultDraw, ResultTeamA},
		{"empty", nil, nil, ResultPending, ResultPending},
		{"unreadable ignored", []string{"x"}, []string{"3"}, ResultPending, ResultPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MajorityResult(tt.a, tt.b, tt.onTie))
		})
	}
}

// Random score grids: the result always names the side with strictly more set wins.
func TestMajorityResult_Property(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 500; i++ {
		sets := faker.IntRange(1, 3)
		a := make([]string, sets)
		b := make([]string, sets)
		winsA, winsB := 0, 0
		for s := 0; s < sets; s++ {
			x, y := faker.IntRange(0, 30), faker.IntRange(0, 30)
			a[s], b[s] = strconv.Itoa(x), strconv.Itoa(y)
			if x > y {
				winsA++
			} else if y > x {
				winsB++
			}
		}

		got := MajorityResult(a, b, ResultPending)
		switch {
		case winsA > winsB:
			assert.Equal(t, ResultTeamA, got, "%v vs %v", a, b)
		case winsB > winsA:
			assert.Equal(t, ResultTeamB, got, "%v vs %v", a, b)
		default:
			assert.Equal(t, ResultPending, got, "%v vs %v", a, b)
		}
	}
}

func TestValidScores(t *testing.T) {
	assert.True(t, ValidScores([]string{"21", "19"}, []string{"18", "21"}))
	assert.False(t, ValidScores(nil, nil))
	assert.False(t, ValidScores([]string{"21"}, []string{"18", "21"}))
	assert.False(t, ValidScores([]string{"21"}, []string{"abc"}))
	assert.False(t, ValidScores([]string{"-1"}, []string{"3"}))
}

func TestMatch_Sides(t *testing.T) {
	m := &Match{TeamAID: "a", TeamBID: "b"}

	assert.Equal(t, SideA, m.SideOf("a"))
	assert.Equal(t, SideB, m.SideOf("b"))
	assert.Equal(t, SideNone, m.SideOf("c"))
	assert.Equal(t, SideB, SideA.Other())
	assert.Equal(t, "b", m.TeamID(SideA.Other()))

	m.SetConfirmed(SideA, true)
	assert.True(t, m.ConfirmedBy(SideA))
	assert.False(t, m.FullyConfirmed())
	m.SetConfirmed(SideB, true)
	assert.True(t, m.FullyConfirmed())
}

func TestMatch_CloneIsDeep(t *testing.T) {
	d := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	m := &Match{Date: &d, OfficialScoreA: []string{"21"}, UserScoreA: []string{"1"}}

	c := m.Clone()
	c.OfficialScoreA[0] = "0"
	c.UserScoreA[0] = "0"
	*c.Date = d.AddDate(0, 0, 1)

	assert.Equal(t, "21", m.OfficialScoreA[0])
	assert.Equal(t, "1", m.UserScoreA[0])
	assert.True(t, m.Date.Equal(d))
}

func TestMatch_SameSyncFields(t *testing.T) {
	d := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	base := &Match{MatchID: "x", Date: &d, Time: "18:00", OfficialScoreA: []string{"21"}, OfficialScoreB: []string{"15"}, OfficialResult: ResultTeamA}

	same := base.Clone()
	same.Result = ResultTeamB // user fields are ignored
	assert.True(t, base.SameSyncFields(same))

	moved := base.Clone()
	moved.Court = "Court 2"
	assert.False(t, base.SameSchedule(moved))
	assert.False(t, base.SameSyncFields(moved))

	rescored := base.Clone()
	rescored.OfficialScoreB = []string{"23"}
	assert.False(t, base.SameOfficialResult(rescored))

	u := &User{SubscribedTeams: []string{"a"}}
	assert.True(t, u.IsSubscribedTo("a"))
	assert.False(t, u.IsSubscribedTo("b"))
}
