// Package reconcile syncs a category spreadsheet into the match store.
//
// One pass runs parse, partition, team upsert, normal upsert, golden upsert
// and linking in that order. Each stage finishes before the next starts;
// only the normal-match upserts fan out across workers.
package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leaguesync/internal/domain"
	"leaguesync/internal/parser"
	"leaguesync/internal/repository"
	"leaguesync/internal/service/tracking"
	"leaguesync/pkg/credential"
	"leaguesync/pkg/logger"
	"leaguesync/pkg/metrics"
	"leaguesync/pkg/sheets"
)

// ChangeKind says why a synced match is worth telling subscribers about
type ChangeKind string

const (
	ChangeCreated         ChangeKind = "created"
	ChangeScheduleChanged ChangeKind = "schedule_changed"
	ChangeResultChanged   ChangeKind = "result_changed"
)

// Change pairs a persisted match with what happened to it
type Change struct {
	Match *domain.Match
	Kind  ChangeKind
}

// Result summarizes one SyncCategory call
type Result struct {
	TeamsCount   int             `json:"teamsCount"`
	MatchesCount int             `json:"matchesCount"`
	Changed      bool            `json:"changed"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	Changes      []Change        `json:"-"`
	Matches      []*domain.Match `json:"-"`
}

// Target identifies one category spreadsheet
type Target struct {
	SpreadsheetID string
	Category      string
	RosterSheet   string
}

// Publisher delivers domain events; *eventbus.Bus implements it
type Publisher interface {
	Publish(ctx context.Context, topic string, v interface{}) error
}

type Options struct {
	// SeasonYear completes day-month dates. Zero means the current year.
	SeasonYear int
	// Workers bounds concurrent normal-match upserts
	Workers int
}

type Service struct {
	reader    sheets.Reader
	teams     repository.TeamRepository
	matches   repository.MatchRepository
	tracker   *tracking.Service
	hasher    *credential.Hasher
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	opts      Options

	now   func() time.Time
	newID func() string
}

func NewService(
	reader sheets.Reader,
	repos *repository.Repositories,
	tracker *tracking.Service,
	hasher *credential.Hasher,
	publisher Publisher,
	m *metrics.Metrics,
	log *logger.Logger,
	opts Options,
) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Service{
		reader:    reader,
		teams:     repos.Teams,
		matches:   repos.Matches,
		tracker:   tracker,
		hasher:    hasher,
		publisher: publisher,
		metrics:   m,
		logger:    log.Named("reconcile"),
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SyncCategory reconciles one category using the default roster sheet
func (s *Service) SyncCategory(ctx context.Context, spreadsheetID, category string) (*Result, error) {
	return s.Sync(ctx, Target{SpreadsheetID: spreadsheetID, Category: category})
}

// Sync reconciles one category. Spreadsheet failures abort the call; failures
// on a single team or match are logged and counted in Result.Failed.
func (s *Service) Sync(ctx context.Context, target Target) (*Result, error) {
	start := s.now()
	log := s.logger.WithFields(map[string]interface{}{
		"category":       target.Category,
		"spreadsheet_id": target.SpreadsheetID,
	})

	res, err := s.sync(ctx, target, log)

	s.metrics.SyncDuration.WithLabelValues(target.Category).Observe(s.now().Sub(start).Seconds())
	switch {
	case err != nil:
		s.metrics.SyncRuns.WithLabelValues(target.Category, "error").Inc()
		log.WithError(err).Error("Category sync failed")
		return nil, err
	case res.Changed:
		s.metrics.SyncRuns.WithLabelValues(target.Category, "changed").Inc()
	default:
		s.metrics.SyncRuns.WithLabelValues(target.Category, "unchanged").Inc()
	}

	s.publishChanges(ctx, res.Changes, log)
	return res, nil
}

func (s *Service) sync(ctx context.Context, target Target, log *logger.Logger) (*Result, error) {
	roster, candidates, err := s.load(ctx, target, log)
	if err != nil {
		return nil, err
	}

	hash, err := tracking.Fingerprint(candidates)
	if err != nil {
		return nil, err
	}

	if !s.tracker.HasChanged(ctx, target.SpreadsheetID, target.Category, hash) {
		return s.unchanged(ctx, target, log)
	}

	normals, goldens := partition(candidates)
	res := &Result{Changed: true}

	teamIDs, failed := s.upsertTeams(ctx, target.Category, teamNames(roster, candidates), log)
	res.TeamsCount = len(teamIDs)
	res.Failed += failed

	syncedNormals, err := s.syncNormals(ctx, normals, teamIDs, res, log)
	if err != nil {
		return nil, err
	}
	syncedGoldens := s.syncGoldens(ctx, goldens, teamIDs, res, log)
	s.link(ctx, syncedNormals, syncedGoldens, res, log)

	res.Matches = append(syncedNormals, syncedGoldens...)
	res.MatchesCount = len(res.Matches)

	if res.Failed > 0 {
		log.WithField("failed", res.Failed).Warn("Sync finished with failures, fingerprint not recorded")
	} else if err := s.tracker.Record(ctx, target.SpreadsheetID, target.Category, hash); err != nil {
		log.WithError(err).Warn("Failed to record fingerprint")
	}

	log.WithFields(map[string]interface{}{
		"teams":   res.TeamsCount,
		"matches": res.MatchesCount,
		"changes": len(res.Changes),
		"skipped": res.Skipped,
	}).Info("Category synced")

	return res, nil
}

// unchanged returns the persisted state without writing any match
func (s *Service) unchanged(ctx context.Context, target Target, log *logger.Logger) (*Result, error) {
	if err := s.tracker.Touch(ctx, target.SpreadsheetID, target.Category); err != nil {
		log.WithError(err).Warn("Failed to refresh tracking")
	}

	matches, err := s.matches.ListByCategory(ctx, target.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	teams, err := s.teams.ListByCategory(ctx, target.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	log.Debug("Spreadsheet unchanged, skipping reconciliation")
	return &Result{
		TeamsCount:   len(teams),
		MatchesCount: len(matches),
		Matches:      matches,
	}, nil
}

// load reads the roster and every match sheet of the spreadsheet
func (s *Service) load(ctx context.Context, target Target, log *logger.Logger) ([]string, []domain.MatchCandidate, error) {
	tabs, err := s.reader.ListSheets(ctx, target.SpreadsheetID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sheets: %w", err)
	}

	var roster []string
	for _, tab := range tabs {
		if !parser.IsRosterSheet(tab.Title, target.RosterSheet) {
			continue
		}
		rows, err := s.reader.ReadRange(ctx, target.SpreadsheetID, tab.Title, parser.RosterRange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read roster: %w", err)
		}
		roster = parser.ParseRoster(rows)
		break
	}

	seasonYear := s.opts.SeasonYear
	if seasonYear == 0 {
		seasonYear = s.now().Year()
	}

	var candidates []domain.MatchCandidate
	for _, tab := range tabs {
		if parser.IsRosterSheet(tab.Title, target.RosterSheet) {
			continue
		}
		rows, err := s.reader.ReadRange(ctx, target.SpreadsheetID, tab.Title, parser.MatchRange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read sheet %q: %w", tab.Title, err)
		}

		parsed, skips := parser.ParseSheet(rows, parser.SheetContext{
			Category:   target.Category,
			SheetName:  tab.Title,
			SeasonYear: seasonYear,
			KnownTeams: roster,
		})
		for _, skip := range skips {
			log.WithFields(map[string]interface{}{
				"sheet":  skip.SheetName,
				"row":    skip.RowNumber,
				"reason": skip.Reason,
			}).Warn("Skipping row")
		}
		candidates = append(candidates, parsed...)
	}

	return roster, candidates, nil
}

func partition(candidates []domain.MatchCandidate) (normals, goldens []domain.MatchCandidate) {
	for _, c := range candidates {
		if c.IsGoldenSet {
			goldens = append(goldens, c)
		} else {
			normals = append(normals, c)
		}
	}
	return normals, goldens
}

// teamNames lists the teams to find-or-create. The roster is authoritative when
// present; otherwise every name seen in a pairing cell is used.
func teamNames(roster []string, candidates []domain.MatchCandidate) []string {
	if len(roster) > 0 {
		return roster
	}
	var names []string
	for _, c := range candidates {
		for _, name := range []string{c.TeamAName, c.TeamBName} {
			if name != "" && !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

func (s *Service) upsertTeams(ctx context.Context, category string, names []string, log *logger.Logger) (map[string]string, int) {
	var (
		mu     sync.Mutex
		ids    = make(map[string]string, len(names))
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, name := range names {
		name := name
		g.Go(func() error {
			team, err := s.findOrCreateTeam(gctx, category, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.WithError(err).WithField("team", name).Error("Failed to upsert team")
				return nil
			}
			ids[name] = team.ID
			return nil
		})
	}
	_ = g.Wait()

	return ids, failed
}

func (s *Service) findOrCreateTeam(ctx context.Context, category, name string) (*domain.Team, error) {
	existing, err := s.teams.FindByNameAndCategory(ctx, name, category)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	plain, err := credential.Placeholder()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}

	now := s.now()
	team, created, err := s.teams.Upsert(ctx, &domain.Team{
		ID:             s.newID(),
		Name:           name,
		Category:       category,
		CredentialHash: hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.WithFields(map[string]interface{}{
			"category": category,
			"team":     name,
			"team_id":  team.ID,
		}).Info("Team created")
	}
	return team, nil
}

// resolveTeams maps both pairing names to team ids; ok is false when either is unknown
func resolveTeams(c domain.MatchCandidate, teamIDs map[string]string) (teamA, teamB string, ok bool) {
	teamA, okA := teamIDs[c.TeamAName]
	teamB, okB := teamIDs[c.TeamBName]
	return teamA, teamB, okA && okB
}

func (s *Service) toMatch(c domain.MatchCandidate, teamA, teamB string, existing *domain.Match) *domain.Match {
	now := s.now()
	m := &domain.Match{
		ID:             s.newID(),
		MatchID:        c.MatchID,
		Category:       c.Category,
		Phase:          c.Phase,
		Date:           c.Date,
		Time:           c.Time,
		Court:          c.Court,
		SheetName:      c.SheetName,
		SpreadsheetRow: c.SpreadsheetRow,
		TeamAID:        teamA,
		TeamBID:        teamB,
		TeamACode:      c.TeamACode,
		TeamBCode:      c.TeamBCode,
		OfficialScoreA: slices.Clone(c.OfficialScoreA),
		OfficialScoreB: slices.Clone(c.OfficialScoreB),
		OfficialResult: c.OfficialResult,
		IsGoldenSet:    c.IsGoldenSet,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if m.OfficialScoreA == nil {
		m.OfficialScoreA = []string{}
	}
	if m.OfficialScoreB == nil {
		m.OfficialScoreB = []string{}
	}
	if existing != nil {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}
	return m
}

// upsertOne writes m unless existing already holds identical sync fields.
// It returns the persisted match and whether a write happened.
func (s *Service) upsertOne(ctx context.Context, m, existing *domain.Match) (*domain.Match, bool, error) {
	if existing != nil && existing.SameSyncFields(m) {
		return existing, false, nil
	}
	stored, err := s.matches.UpsertSynced(ctx, m)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

func (s *Service) syncNormals(ctx context.Context, candidates []domain.MatchCandidate, teamIDs map[string]string, res *Result, log *logger.Logger) ([]*domain.Match, error) {
	var (
		mu     sync.Mutex
		synced = make([]*domain.Match, len(candidates))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mlog := log.WithField("match_id", c.MatchID)

			teamA, teamB, ok := resolveTeams(c, teamIDs)
			if !ok {
				mlog.WithFields(map[string]interface{}{
					"team_a": c.TeamAName,
					"team_b": c.TeamBName,
				}).Warn("Skipping match with unknown team")
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				return nil
			}

			existing, err := s.matches.GetByMatchID(gctx, c.MatchID)
			if err != nil {
				s.recordFailure(&mu, res, mlog, err)
				return nil
			}

			m := s.toMatch(c, teamA, teamB, existing)
			stored, wrote, err := s.upsertOne(gctx, m, existing)
			if err != nil {
				s.recordFailure(&mu, res, mlog, err)
				return nil
			}
			if wrote {
				s.metrics.MatchUpserts.WithLabelValues(c.Category, "normal").Inc()
			}

			mu.Lock()
			defer mu.Unlock()
			synced[i] = stored
			res.Changes = append(res.Changes, normalChanges(stored, existing)...)
			return nil
		})
	}

	// only cancellation of ctx surfaces here
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*domain.Match, 0, len(synced))
	for _, m := range synced {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) recordFailure(mu *sync.Mutex, res *Result, log *logger.Logger, err error) {
	mu.Lock()
	res.Failed++
	mu.Unlock()
	log.WithError(err).Error("Failed to sync match")
}

func normalChanges(stored, existing *domain.Match) []Change {
	if existing == nil {
		return []Change{{Match: stored, Kind: ChangeCreated}}
	}
	var changes []Change
	if !existing.SameSchedule(stored) {
		changes = append(changes, Change{Match: stored, Kind: ChangeScheduleChanged})
	}
	if stored.HasOfficialScore() && !existing.SameOfficialResult(stored) {
		changes = append(changes, Change{Match: stored, Kind: ChangeResultChanged})
	}
	return changes
}

// syncGoldens upserts golden set candidates. Their official result is derived
// from the set scores; a tie or missing score leaves it pending.
func (s *Service) syncGoldens(ctx context.Context, candidates []domain.MatchCandidate, teamIDs map[string]string, res *Result, log *logger.Logger) []*domain.Match {
	var synced []*domain.Match

	for _, c := range candidates {
		mlog := log.WithField("match_id", c.MatchID)

		teamA, teamB, ok := resolveTeams(c, teamIDs)
		if !ok {
			mlog.WithFields(map[string]interface{}{
				"team_a": c.TeamAName,
				"team_b": c.TeamBName,
			}).Warn("Skipping golden set with unknown team")
			res.Skipped++
			continue
		}

		existing, err := s.matches.GetByMatchID(ctx, c.MatchID)
		if err != nil {
			res.Failed++
			mlog.WithError(err).Error("Failed to sync golden set")
			continue
		}

		m := s.toMatch(c, teamA, teamB, existing)
		m.IsGoldenSet = true
		m.TeamACode, m.TeamBCode = domain.TeamCodeG, domain.TeamCodeG
		m.OfficialResult = domain.MajorityResult(m.OfficialScoreA, m.OfficialScoreB, domain.ResultPending)

		resultChanged := goldenResultChanged(m, existing)

		stored, wrote, err := s.upsertOne(ctx, m, existing)
		if err != nil {
			res.Failed++
			mlog.WithError(err).Error("Failed to sync golden set")
			continue
		}
		if wrote {
			s.metrics.MatchUpserts.WithLabelValues(c.Category, "golden").Inc()
		}

		if existing == nil {
			res.Changes = append(res.Changes, Change{Match: stored, Kind: ChangeCreated})
		} else if !existing.SameSchedule(stored) {
			res.Changes = append(res.Changes, Change{Match: stored, Kind: ChangeScheduleChanged})
		}
		if resultChanged {
			res.Changes = append(res.Changes, Change{Match: stored, Kind: ChangeResultChanged})
		}
		synced = append(synced, stored)
	}

	return synced
}

// goldenResultChanged is true when a score is present and either no record
// existed or the scores or result differ from the stored ones.
func goldenResultChanged(m, existing *domain.Match) bool {
	if len(m.OfficialScoreA) == 0 {
		return false
	}
	if existing == nil {
		return true
	}
	return !existing.SameOfficialResult(m)
}

// BaseMatchID strips the golden marker from a golden set's match id, so
// "U21_Pool A_07G" gives "U21_Pool A_07".
func BaseMatchID(matchID string) string {
	if n := len(matchID); n > 0 && (matchID[n-1] == 'G' || matchID[n-1] == 'g') {
		return matchID[:n-1]
	}
	return matchID
}

// link points every normal match of this batch that shares a golden set's base
// id at that golden set
func (s *Service) link(ctx context.Context, normals, goldens []*domain.Match, res *Result, log *logger.Logger) {
	for _, golden := range goldens {
		base := BaseMatchID(golden.MatchID)
		glog := log.WithFields(map[string]interface{}{
			"match_id":      golden.MatchID,
			"base_match_id": base,
		})

		linked := 0
		for _, m := range normals {
			if !strings.HasPrefix(m.MatchID, base) {
				continue
			}
			linked++
			if m.RelatedMatchID == golden.ID {
				continue
			}
			if err := s.matches.SetRelated(ctx, m.MatchID, golden.ID); err != nil {
				res.Failed++
				glog.WithError(err).WithField("related_match_id", m.MatchID).Error("Failed to link match")
				continue
			}
			m.RelatedMatchID = golden.ID
		}

		if linked == 0 {
			glog.Info("Golden set has no matches to link")
			continue
		}
		glog.WithField("linked", linked).Debug("Golden set linked")
	}
}

func (s *Service) publishChanges(ctx context.Context, changes []Change, log *logger.Logger) {
	if s.publisher == nil {
		return
	}
	for _, change := range changes {
		typ := domain.NotificationMatchScheduled
		if change.Kind == ChangeResultChanged {
			typ = domain.NotificationMatchResult
		}
		event := domain.MatchEvent{
			Type:       typ,
			MatchID:    change.Match.ID,
			OccurredAt: s.now(),
		}
		if err := s.publisher.Publish(ctx, domain.MatchEventsTopic, event); err != nil {
			log.WithError(err).WithField("match_id", change.Match.MatchID).Warn("Failed to publish match event")
		}
	}
}
