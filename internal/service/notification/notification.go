// Package notification turns match events into per-user notification records
// and delivers them through the push transport.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leaguesync/internal/domain"
	"leaguesync/internal/repository"
	"leaguesync/pkg/errors"
	"leaguesync/pkg/eventbus"
	"leaguesync/pkg/lock"
	"leaguesync/pkg/logger"
	"leaguesync/pkg/metrics"
	"leaguesync/pkg/redis"
)

// Transport sends one push message; *push.ExpoTransport implements it
type Transport interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Subscriber registers an event handler; *eventbus.Bus implements it
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler eventbus.Handler) error
}

type Options struct {
	// DedupWindow suppresses repeated match_scheduled records per (user, match)
	DedupWindow time.Duration
	// MaxAttempts bounds delivery retries of failed records
	MaxAttempts int
	BatchSize   int
	Workers     int
	SendTimeout time.Duration
	// Retention is how long delivered or exhausted records are kept
	Retention time.Duration
	// ClaimLease is how long a delivery claim holds before a pass may take the
	// record over; it covers a process dying mid-send
	ClaimLease time.Duration
}

func (o *Options) setDefaults() {
	if o.DedupWindow <= 0 {
		o.DedupWindow = 30 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 200
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 10 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 30 * 24 * time.Hour
	}
	if o.ClaimLease <= 0 {
		o.ClaimLease = 5 * time.Minute
	}
	if o.ClaimLease < 2*o.SendTimeout {
		o.ClaimLease = 2 * o.SendTimeout
	}
}

// DeliveryStats counts the outcome of one delivery pass
type DeliveryStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Service struct {
	matches       repository.MatchRepository
	teams         repository.TeamRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	transport     Transport
	locker        lock.Locker
	metrics       *metrics.Metrics
	logger        *logger.Logger
	opts          Options

	now   func() time.Time
	newID func() string
}

func NewService(
	repos *repository.Repositories,
	transport Transport,
	locker lock.Locker,
	m *metrics.Metrics,
	log *logger.Logger,
	opts Options,
) *Service {
	opts.setDefaults()
	return &Service{
		matches:       repos.Matches,
		teams:         repos.Teams,
		users:         repos.Users,
		notifications: repos.Notifications,
		transport:     transport,
		locker:        locker,
		metrics:       m,
		logger:        log.Named("notification"),
		opts:          opts,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Start consumes match events until ctx is done
func (s *Service) Start(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(ctx, domain.MatchEventsTopic, s.HandleEvent)
}

// HandleEvent decodes one bus payload and fans it out
func (s *Service) HandleEvent(ctx context.Context, payload []byte) error {
	var event domain.MatchEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode match event: %w", err)
	}
	_, err := s.NotifyMatchEvent(ctx, event)
	return err
}

// NotifyMatchEvent creates one notification per interested subscriber and
// delivers the new records right away. It returns the records created.
func (s *Service) NotifyMatchEvent(ctx context.Context, event domain.MatchEvent) ([]*domain.Notification, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"match_id": event.MatchID,
		"type":     event.Type,
	})

	m, err := s.matches.GetByID(ctx, event.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	if m == nil {
		return nil, errors.NewNotFoundError("Match not found")
	}

	if m.IsGoldenSet && !m.HasOfficialScore() && len(m.UserScoreA) == 0 {
		s.metrics.NotificationsSuppressed.WithLabelValues("golden_without_score").Inc()
		log.Debug("Golden set has no score yet, not notifying")
		return nil, nil
	}

	targets := targetTeams(m, event.Teams)
	if len(targets) == 0 {
		return nil, nil
	}

	recipients, err := s.users.ListSubscribers(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	names, err := s.teamNames(ctx, m)
	if err != nil {
		return nil, err
	}

	var created []*domain.Notification
	for _, user := range recipients {
		side := recipientSide(m, user, targets)
		n, err := s.createFor(ctx, event, m, user, side, names)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Failed to create notification")
			continue
		}
		if n != nil {
			created = append(created, n)
		}
	}

	s.deliverAll(ctx, s.claim(ctx, created, log))
	return created, nil
}

// claim leases freshly created records for immediate delivery. Records a
// delivery pass already holds are left to that pass.
func (s *Service) claim(ctx context.Context, list []*domain.Notification, log *logger.Logger) []*domain.Notification {
	at := s.now()
	claimed := make([]*domain.Notification, 0, len(list))
	for _, n := range list {
		ok, err := s.notifications.Claim(ctx, n.ID, at)
		if err != nil {
			log.WithError(err).WithField("notification_id", n.ID).Error("Failed to claim notification")
			continue
		}
		if ok {
			claimed = append(claimed, n)
		}
	}
	return claimed
}

// targetTeams keeps the requested teams that actually play m; none requested means both
func targetTeams(m *domain.Match, requested []string) []string {
	both := []string{m.TeamAID, m.TeamBID}
	if len(requested) == 0 {
		return slices.DeleteFunc(both, func(id string) bool { return id == "" })
	}
	var out []string
	for _, id := range requested {
		if id != "" && slices.Contains(both, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// recipientSide is the side a subscriber reads as "my team". Side A wins when
// the user follows both.
func recipientSide(m *domain.Match, user *domain.User, targets []string) domain.Side {
	if slices.Contains(targets, m.TeamAID) && user.IsSubscribedTo(m.TeamAID) {
		return domain.SideA
	}
	return domain.SideB
}

func (s *Service) teamNames(ctx context.Context, m *domain.Match) (map[string]string, error) {
	names := make(map[string]string, 2)
	for _, id := range []string{m.TeamAID, m.TeamBID} {
		team, err := s.teams.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load team: %w", err)
		}
		if team != nil {
			names[id] = team.Name
		}
	}
	return names, nil
}

func (s *Service) createFor(ctx context.Context, event domain.MatchEvent, m *domain.Match, user *domain.User, side domain.Side, names map[string]string) (*domain.Notification, error) {
	typ := event.Type
	v := buildView(typ, m, side, names)
	v.Withdrawn = typ == domain.NotificationResultRejected && event.ActorTeam != "" && event.ActorTeam == m.TeamID(side)
	title, body, err := render(typ, v)
	if err != nil {
		return nil, err
	}

	n := &domain.Notification{
		ID:        s.newID(),
		UserID:    user.ID,
		TeamID:    m.TeamID(side),
		MatchID:   m.ID,
		Type:      typ,
		Title:     title,
		Message:   body,
		Status:    domain.NotificationPending,
		CreatedAt: s.now(),
	}

	if typ != domain.NotificationMatchScheduled {
		return s.create(ctx, n)
	}

	// dedup check and insert must not interleave for the same (user, match)
	release, err := s.locker.Lock(ctx, redis.NotificationLockScope(user.ID, m.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock notification scope: %w", err)
	}
	defer release()

	recent, err := s.notifications.FindRecent(ctx, user.ID, m.ID, typ, n.CreatedAt.Add(-s.opts.DedupWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to check recent notifications: %w", err)
	}
	if recent != nil {
		s.metrics.NotificationsSuppressed.WithLabelValues("duplicate").Inc()
		s.logger.WithFields(map[string]interface{}{
			"user_id":         user.ID,
			"match_id":        m.MatchID,
			"notification_id": recent.ID,
		}).Debug("Recent match_scheduled notification exists, suppressing")
		return nil, nil
	}
	return s.create(ctx, n)
}

func (s *Service) create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	return n, nil
}

// ProcessPendingNotifications claims and delivers pending records, retries
// failed ones below MaxAttempts and takes over expired claims. Records of the
// same (user, match, type) go out in order; distinct groups are delivered in
// parallel.
func (s *Service) ProcessPendingNotifications(ctx context.Context) (DeliveryStats, error) {
	now := s.now()
	pending, err := s.notifications.ClaimDeliverable(ctx, s.opts.MaxAttempts, s.opts.BatchSize, now, now.Add(-s.opts.ClaimLease))
	if err != nil {
		return DeliveryStats{}, fmt.Errorf("failed to claim deliverable notifications: %w", err)
	}
	stats := s.deliverAll(ctx, pending)
	if len(pending) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"sent":   stats.Sent,
			"failed": stats.Failed,
		}).Info("Delivery pass finished")
	}
	return stats, nil
}

// Cleanup removes delivered and exhausted records older than the retention period
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	removed, err := s.notifications.DeleteOlderThan(ctx, s.now().Add(-s.opts.Retention), s.opts.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Old notifications removed")
	}
	return removed, nil
}

func (s *Service) deliverAll(ctx context.Context, list []*domain.Notification) DeliveryStats {
	type groupKey struct {
		user, match string
		typ         domain.NotificationType
	}

	var (
		order  []groupKey
		groups = make(map[groupKey][]*domain.Notification)
	)
	for _, n := range list {
		k := groupKey{n.UserID, n.MatchID, n.Type}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], n)
	}

	var (
		mu    sync.Mutex
		stats DeliveryStats
	)
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)

	for _, k := range order {
		batch := groups[k]
		g.Go(func() error {
			for _, n := range batch {
				sent := s.deliver(ctx, n)
				mu.Lock()
				if sent {
					stats.Sent++
				} else {
					stats.Failed++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return stats
}

// deliver sends one record and stores the outcome. A user without a push
// token still counts as delivered.
func (s *Service) deliver(ctx context.Context, n *domain.Notification) bool {
	log := s.logger.WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"user_id":         n.UserID,
	})

	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		s.fail(ctx, n, fmt.Sprintf("failed to load user: %v", err), log)
		return false
	}
	if user == nil {
		s.fail(ctx, n, "user not found", log)
		return false
	}

	if user.PushToken != "" {
		sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
		err := s.transport.Send(sendCtx, user.PushToken, n.Title, n.Message, map[string]string{
			"notification_id": n.ID,
			"match_id":        n.MatchID,
			"type":            string(n.Type),
		})
		cancel()
		if err != nil {
			s.fail(ctx, n, err.Error(), log)
			return false
		}
	}

	if err := s.notifications.MarkSent(ctx, n.ID, s.now()); err != nil {
		log.WithError(err).Error("Failed to mark notification sent")
		return false
	}
	s.metrics.NotificationsDelivered.WithLabelValues(string(domain.NotificationSent)).Inc()
	return true
}

func (s *Service) fail(ctx context.Context, n *domain.Notification, details string, log *logger.Logger) {
	s.metrics.NotificationsDelivered.WithLabelValues(string(domain.NotificationFailed)).Inc()
	log.WithField("error_details", details).Warn("Notification delivery failed")
	if err := s.notifications.MarkFailed(ctx, n.ID, details); err != nil {
		log.WithError(err).Error("Failed to mark notification failed")
	}
}
