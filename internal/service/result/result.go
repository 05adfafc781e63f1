// Package result implements team-submitted results: submit, confirm and reject.
package result

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"leaguesync/internal/domain"
	"leaguesync/internal/parser"
	"leaguesync/internal/repository"
	"leaguesync/pkg/credential"
	"leaguesync/pkg/errors"
	"leaguesync/pkg/lock"
	"leaguesync/pkg/logger"
	"leaguesync/pkg/redis"
	"leaguesync/pkg/sheets"
)

// Publisher delivers domain events; *eventbus.Bus implements it
type Publisher interface {
	Publish(ctx context.Context, topic string, v interface{}) error
}

// SpreadsheetLookup maps a category to its spreadsheet id
type SpreadsheetLookup func(category string) (spreadsheetID string, ok bool)

// SubmitInput is one team's proposed score
type SubmitInput struct {
	MatchID    string   `json:"-"`
	TeamID     string   `json:"team_id"`
	Credential string   `json:"credential"`
	ScoreA     []string `json:"score_a"`
	ScoreB     []string `json:"score_b"`
}

// ConfirmInput accepts (Confirm true) or rejects (Confirm false) the pending
// submission. Confirm is required.
type ConfirmInput struct {
	MatchID    string `json:"-"`
	TeamID     string `json:"team_id"`
	Credential string `json:"credential"`
	Confirm    *bool  `json:"confirm"`
}

// Accepts reports whether the input confirms rather than rejects
func (in ConfirmInput) Accepts() bool {
	return in.Confirm != nil && *in.Confirm
}

type Service struct {
	matches   repository.MatchRepository
	teams     repository.TeamRepository
	hasher    *credential.Hasher
	locker    lock.Locker
	writer    sheets.Writer
	lookup    SpreadsheetLookup
	publisher Publisher
	logger    *logger.Logger

	writeBackTimeout time.Duration
	// lockWait bounds how long a request waits for a busy match
	lockWait time.Duration
	now      func() time.Time
}

// NewService wires the lifecycle. writer and lookup may be nil, which disables write-back.
func NewService(
	repos *repository.Repositories,
	hasher *credential.Hasher,
	locker lock.Locker,
	writer sheets.Writer,
	lookup SpreadsheetLookup,
	publisher Publisher,
	log *logger.Logger,
) *Service {
	return &Service{
		matches:          repos.Matches,
		teams:            repos.Teams,
		hasher:           hasher,
		locker:           locker,
		writer:           writer,
		lookup:           lookup,
		publisher:        publisher,
		logger:           log.Named("result"),
		writeBackTimeout: 10 * time.Second,
		lockWait:         5 * time.Second,
		now:              time.Now,
	}
}

// Submit stores a team's score proposal. The submitting side is marked as
// confirmed and the other side's confirmation is cleared.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Match, error) {
	var submitted *domain.Match

	err := s.withMatch(ctx, in.MatchID, func(m *domain.Match) error {
		side, err := s.authorize(ctx, m, in.TeamID, in.Credential)
		if err != nil {
			return err
		}
		if !domain.ValidScores(in.ScoreA, in.ScoreB) {
			return errors.NewValidationError("Scores must be equal-length non-empty lists of set points", map[string]interface{}{
				"score_a": in.ScoreA,
				"score_b": in.ScoreB,
			})
		}

		m.UserScoreA = slices.Clone(in.ScoreA)
		m.UserScoreB = slices.Clone(in.ScoreB)
		m.SetConfirmed(side, true)
		m.SetConfirmed(side.Other(), false)
		m.Result = domain.MajorityResult(m.UserScoreA, m.UserScoreB, domain.ResultDraw)

		if err := s.save(ctx, m); err != nil {
			return err
		}
		submitted = m

		s.logger.WithFields(map[string]interface{}{
			"match_id": m.MatchID,
			"team_id":  in.TeamID,
			"result":   m.Result,
		}).Info("Result submitted")

		s.publish(ctx, domain.NotificationResultEntered, m, in.TeamID, m.TeamID(side.Other()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// Confirm accepts or rejects the submitted result on behalf of a team
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*domain.Match, error) {
	if in.Confirm == nil {
		return nil, errors.NewValidationError("confirm is required", map[string]interface{}{
			"confirm": "true to accept the submitted result, false to reject it",
		})
	}

	var out *domain.Match

	err := s.withMatch(ctx, in.MatchID, func(m *domain.Match) error {
		side, err := s.authorize(ctx, m, in.TeamID, in.Credential)
		if err != nil {
			return err
		}

		if !in.Accepts() {
			out, err = s.reject(ctx, m, side, in.TeamID)
			return err
		}

		if len(m.UserScoreA) == 0 {
			return errors.NewValidationError("No result has been submitted for this match", nil)
		}
		if m.ConfirmedBy(side) {
			out = m
			return nil
		}

		m.SetConfirmed(side, true)
		if err := s.save(ctx, m); err != nil {
			return err
		}
		out = m

		log := s.logger.WithFields(map[string]interface{}{
			"match_id": m.MatchID,
			"team_id":  in.TeamID,
		})
		if !m.FullyConfirmed() {
			log.Info("Result confirmed by one team")
			return nil
		}

		log.WithField("result", m.Result).Info("Result confirmed by both teams")
		s.publish(ctx, domain.NotificationResultConfirmed, m, in.TeamID, m.TeamAID, m.TeamBID)
		s.writeBack(ctx, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// reject returns the match to pending and tells the teams that had confirmed.
// A team withdrawing its own submission is told as well.
func (s *Service) reject(ctx context.Context, m *domain.Match, side domain.Side, teamID string) (*domain.Match, error) {
	var notify []string
	for _, sd := range []domain.Side{domain.SideA, domain.SideB} {
		if sd != side && m.ConfirmedBy(sd) {
			notify = append(notify, m.TeamID(sd))
		}
	}
	if len(notify) == 0 && m.ConfirmedBy(side) {
		notify = append(notify, m.TeamID(side))
	}

	if !m.ConfirmedByTeamA && !m.ConfirmedByTeamB && m.Result == domain.ResultPending && len(m.UserScoreA) == 0 {
		return m, nil
	}

	m.ConfirmedByTeamA, m.ConfirmedByTeamB = false, false
	m.Result = domain.ResultPending
	m.UserScoreA, m.UserScoreB = []string{}, []string{}

	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"match_id": m.MatchID,
		"team_id":  teamID,
	}).Info("Result rejected")

	if len(notify) > 0 {
		s.publish(ctx, domain.NotificationResultRejected, m, teamID, notify...)
	}
	return m, nil
}

// withMatch runs fn on a fresh copy of the match while holding its lock
func (s *Service) withMatch(ctx context.Context, id string, fn func(*domain.Match) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Lock(lockCtx, redis.MatchLockScope(id))
	cancel()
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewConflictError("Match is busy, try again")
	default:
		return errors.NewUpstreamError("Match lock unavailable", err)
	}
	defer release()

	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return errors.NewInternalError("Failed to load match", err)
	}
	if m == nil {
		return errors.NewNotFoundError("Match not found")
	}
	return fn(m)
}

// authorize resolves the caller's side. Order: unknown team, non-participant, bad credential.
func (s *Service) authorize(ctx context.Context, m *domain.Match, teamID, secret string) (domain.Side, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return domain.SideNone, errors.NewInternalError("Failed to load team", err)
	}
	if team == nil {
		return domain.SideNone, errors.NewNotFoundError("Team not found")
	}

	side := m.SideOf(team.ID)
	if side == domain.SideNone {
		return domain.SideNone, errors.NewForbiddenError("Team does not play in this match")
	}
	if !s.hasher.Verify(secret, team.CredentialHash) {
		return domain.SideNone, errors.NewUnauthorizedError("Invalid team credential")
	}
	return side, nil
}

func (s *Service) save(ctx context.Context, m *domain.Match) error {
	m.UpdatedAt = s.now()
	err := s.matches.UpdateResult(ctx, m, m.Version)
	if stderrors.Is(err, repository.ErrVersionConflict) {
		return errors.NewConflictError("Match was modified concurrently")
	}
	if err != nil {
		return errors.NewInternalError("Failed to save result", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ domain.NotificationType, m *domain.Match, actor string, teams ...string) {
	if s.publisher == nil {
		return
	}
	event := domain.MatchEvent{
		Type:       typ,
		MatchID:    m.ID,
		Teams:      teams,
		ActorTeam:  actor,
		OccurredAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, domain.MatchEventsTopic, event); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"match_id": m.MatchID,
			"type":     typ,
		}).Warn("Failed to publish match event")
	}
}

// WriteBackRow renders the confirmed result as the G:M cells of the match row
func WriteBackRow(m *domain.Match) []string {
	row := make([]string, 7)
	row[0] = parser.FormatResultCell(m.UserScoreA, m.UserScoreB)
	for i := 0; i < 3 && i < len(m.UserScoreA) && i < len(m.UserScoreB); i++ {
		row[1+2*i] = m.UserScoreA[i]
		row[2+2*i] = m.UserScoreB[i]
	}
	return row
}

// writeBack copies a confirmed result to the source sheet. Failures are logged only.
func (s *Service) writeBack(ctx context.Context, m *domain.Match) {
	if s.writer == nil || s.lookup == nil {
		return
	}
	log := s.logger.WithField("match_id", m.MatchID)

	spreadsheetID, ok := s.lookup(m.Category)
	if !ok || m.SheetName == "" || m.SpreadsheetRow < parser.FirstDataRow {
		log.Warn("No source row for write-back")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeBackTimeout)
	defer cancel()

	rng := parser.WriteBackRange(m.SpreadsheetRow)
	if err := s.writer.WriteRange(ctx, spreadsheetID, m.SheetName, rng, [][]string{WriteBackRow(m)}); err != nil {
		log.WithError(fmt.Errorf("write-back %s!%s: %w", m.SheetName, rng, err)).Warn("Failed to write result back to spreadsheet")
		return
	}
	log.WithField("range", rng).Info("Result written back to spreadsheet")
}
