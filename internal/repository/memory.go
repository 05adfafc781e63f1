package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"leaguesync/internal/domain"
)

// MemoryStore is a process-local keyed record store implementing every
// repository interface. It backs service tests and database-less runs.
type MemoryStore struct {
	mu sync.RWMutex

	// teams are keyed by ID, matches by MatchID
	teams         map[string]*domain.Team
	matches       map[string]*domain.Match
	tracking      map[string]*domain.SheetTracking
	notifications map[string]*domain.Notification
	users         map[string]*domain.User

	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:         make(map[string]*domain.Team),
		matches:       make(map[string]*domain.Match),
		tracking:      make(map[string]*domain.SheetTracking),
		notifications: make(map[string]*domain.Notification),
		users:         make(map[string]*domain.User),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *MemoryStore) Repositories() *Repositories {
	return &Repositories{
		Teams:         memTeams{s},
		Matches:       memMatches{s},
		Tracking:      memTracking{s},
		Notifications: memNotifications{s},
		Users:         memUsers{s},
	}
}

// MatchWrites counts mutating match calls; tests use it to assert no-op syncs
func (s *MemoryStore) MatchWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

type memTeams struct{ s *MemoryStore }

func copyTeam(t *domain.Team) *domain.Team {
	c := *t
	return &c
}

func (r memTeams) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t, ok := r.s.teams[id]; ok {
		return copyTeam(t), nil
	}
	return nil, nil
}

func (r memTeams) FindByNameAndCategory(_ context.Context, name, category string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.teams {
		if t.Name == name && t.Category == category {
			return copyTeam(t), nil
		}
	}
	return nil, nil
}

func (r memTeams) ListByCategory(_ context.Context, category string) ([]*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Team
	for _, t := range r.s.teams {
		if t.Category == category {
			out = append(out, copyTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memTeams) Upsert(_ context.Context, team *domain.Team) (*domain.Team, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.teams {
		if t.Name == team.Name && t.Category == team.Category {
			return copyTeam(t), false, nil
		}
	}
	stored := copyTeam(team)
	stored.UpdatedAt = stored.CreatedAt
	r.s.teams[stored.ID] = stored
	return copyTeam(stored), true, nil
}

type memMatches struct{ s *MemoryStore }

func (r memMatches) GetByID(_ context.Context, id string) (*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.matches {
		if m.ID == id {
			return m.Clone(), nil
		}
	}
	return nil, nil
}

func (r memMatches) GetByMatchID(_ context.Context, matchID string) (*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if m, ok := r.s.matches[matchID]; ok {
		return m.Clone(), nil
	}
	return nil, nil
}

func (r memMatches) ListByCategory(_ context.Context, category string) ([]*domain.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Match
	for _, m := range r.s.matches {
		if m.Category == category {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out, nil
}

func (r memMatches) UpsertSynced(_ context.Context, m *domain.Match) (*domain.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.writes++

	existing, ok := r.s.matches[m.MatchID]
	if !ok {
		stored := m.Clone()
		stored.UserScoreA, stored.UserScoreB = []string{}, []string{}
		stored.ConfirmedByTeamA, stored.ConfirmedByTeamB = false, false
		stored.Result = domain.ResultPending
		stored.RelatedMatchID = ""
		stored.Version = 0
		if stored.OfficialScoreA == nil {
			stored.OfficialScoreA = []string{}
		}
		if stored.OfficialScoreB == nil {
			stored.OfficialScoreB = []string{}
		}
		r.s.matches[m.MatchID] = stored
		return stored.Clone(), nil
	}

	updated := m.Clone()
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UserScoreA = slices.Clone(existing.UserScoreA)
	updated.UserScoreB = slices.Clone(existing.UserScoreB)
	updated.ConfirmedByTeamA = existing.ConfirmedByTeamA
	updated.ConfirmedByTeamB = existing.ConfirmedByTeamB
	updated.Result = existing.Result
	updated.RelatedMatchID = existing.RelatedMatchID
	updated.Version = existing.Version
	if updated.OfficialScoreA == nil {
		updated.OfficialScoreA = []string{}
	}
	if updated.OfficialScoreB == nil {
		updated.OfficialScoreB = []string{}
	}
	r.s.matches[m.MatchID] = updated
	return updated.Clone(), nil
}

func (r memMatches) SetRelated(_ context.Context, matchID, relatedID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[matchID]
	if !ok {
		return fmt.Errorf("failed to link match: %s not found", matchID)
	}
	r.s.writes++
	m.RelatedMatchID = relatedID
	return nil
}

func (r memMatches) UpdateResult(_ context.Context, m *domain.Match, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.matches {
		if stored.ID != m.ID {
			continue
		}
		if stored.Version != expectedVersion {
			return ErrVersionConflict
		}
		r.s.writes++
		stored.UserScoreA = slices.Clone(nonNil(m.UserScoreA))
		stored.UserScoreB = slices.Clone(nonNil(m.UserScoreB))
		stored.ConfirmedByTeamA = m.ConfirmedByTeamA
		stored.ConfirmedByTeamB = m.ConfirmedByTeamB
		stored.Result = m.Result
		stored.UpdatedAt = m.UpdatedAt
		stored.Version++
		m.Version = stored.Version
		return nil
	}
	return ErrVersionConflict
}

type memTracking struct{ s *MemoryStore }

func trackingKey(spreadsheetID, category string) string {
	return spreadsheetID + "\x00" + category
}

func (r memTracking) Get(_ context.Context, spreadsheetID, category string) (*domain.SheetTracking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if t, ok := r.s.tracking[trackingKey(spreadsheetID, category)]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r memTracking) Save(_ context.Context, t *domain.SheetTracking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *t
	r.s.tracking[trackingKey(t.SpreadsheetID, t.Category)] = &c
	return nil
}

func (r memTracking) Delete(_ context.Context, spreadsheetID, category string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tracking, trackingKey(spreadsheetID, category))
	return nil
}

type memNotifications struct{ s *MemoryStore }

func copyNotification(n *domain.Notification) *domain.Notification {
	c := *n
	if n.SentAt != nil {
		at := *n.SentAt
		c.SentAt = &at
	}
	if n.ClaimedAt != nil {
		at := *n.ClaimedAt
		c.ClaimedAt = &at
	}
	return &c
}

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[n.ID]; ok {
		return fmt.Errorf("failed to create notification: duplicate id %s", n.ID)
	}
	r.s.notifications[n.ID] = copyNotification(n)
	return nil
}

func (r memNotifications) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if n, ok := r.s.notifications[id]; ok {
		return copyNotification(n), nil
	}
	return nil, nil
}

func (r memNotifications) FindRecent(_ context.Context, userID, matchID string, typ domain.NotificationType, since time.Time) (*domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var newest *domain.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || n.MatchID != matchID || n.Type != typ || n.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || n.CreatedAt.After(newest.CreatedAt) {
			newest = n
		}
	}
	if newest == nil {
		return nil, nil
	}
	return copyNotification(newest), nil
}

func (r memNotifications) Claim(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.Status != domain.NotificationPending {
		return false, nil
	}
	n.Status = domain.NotificationSending
	n.ClaimedAt = &at
	return true, nil
}

func (r memNotifications) ClaimDeliverable(_ context.Context, maxAttempts, limit int, at, staleBefore time.Time) ([]*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var due []*domain.Notification
	for _, n := range r.s.notifications {
		switch {
		case n.Status == domain.NotificationPending:
		case n.Status == domain.NotificationFailed && n.Attempts < maxAttempts:
		case n.Status == domain.NotificationSending && n.ClaimedAt != nil && n.ClaimedAt.Before(staleBefore):
		default:
			continue
		}
		due = append(due, n)
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].CreatedAt.Equal(due[j].CreatedAt) {
			return strings.Compare(due[i].ID, due[j].ID) < 0
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]*domain.Notification, 0, len(due))
	for _, n := range due {
		n.Status = domain.NotificationSending
		claimed := at
		n.ClaimedAt = &claimed
		out = append(out, copyNotification(n))
	}
	return out, nil
}

func (r memNotifications) MarkSent(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s not found", id)
	}
	n.Status = domain.NotificationSent
	n.SentAt = &at
	n.ClaimedAt = nil
	n.ErrorDetails = ""
	n.Attempts++
	return nil
}

func (r memNotifications) MarkFailed(_ context.Context, id string, details string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s not found", id)
	}
	n.Status = domain.NotificationFailed
	n.ClaimedAt = nil
	n.ErrorDetails = details
	n.Attempts++
	return nil
}

func (r memNotifications) DeleteOlderThan(_ context.Context, cutoff time.Time, maxAttempts int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, rec := range r.s.notifications {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if rec.Status == domain.NotificationSent ||
			(rec.Status == domain.NotificationFailed && rec.Attempts >= maxAttempts) {
			delete(r.s.notifications, id)
			n++
		}
	}
	return n, nil
}

// AllNotifications returns every notification ordered by creation
func (s *MemoryStore) AllNotifications() []*domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, copyNotification(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type memUsers struct{ s *MemoryStore }

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.SubscribedTeams = slices.Clone(u.SubscribedTeams)
	return &c
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (r memUsers) ListSubscribers(_ context.Context, teamIDs []string) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.User
	for _, u := range r.s.users {
		for _, teamID := range teamIDs {
			if u.IsSubscribedTo(teamID) {
				out = append(out, copyUser(u))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) Save(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[u.ID] = copyUser(u)
	return nil
}
