// Package tracking decides whether a category's spreadsheet content changed
// since the last successful reconciliation.
package tracking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"leaguesync/internal/domain"
	"leaguesync/internal/repository"
	"leaguesync/pkg/logger"
)

// Fingerprint hashes the ordered candidate list. Equal lists give equal hashes.
func Fingerprint(candidates []domain.MatchCandidate) (string, error) {
	if candidates == nil {
		candidates = []domain.MatchCandidate{}
	}
	payload, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("failed to serialize candidates: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Service reads and writes SheetTracking records
type Service struct {
	repo   repository.TrackingRepository
	logger *logger.Logger
	now    func() time.Time
}

func NewService(repo repository.TrackingRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

// HasChanged is true when no record exists or the stored hash differs.
// A lookup failure counts as changed.
func (s *Service) HasChanged(ctx context.Context, spreadsheetID, category, hash string) bool {
	record, err := s.repo.Get(ctx, spreadsheetID, category)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"spreadsheet_id": spreadsheetID,
			"category":       category,
		}).Warn("Tracking lookup failed, assuming changed")
		return true
	}
	return record == nil || record.MatchesHash != hash
}

// Record stores hash as the latest reconciled fingerprint
func (s *Service) Record(ctx context.Context, spreadsheetID, category, hash string) error {
	now := s.now()
	err := s.repo.Save(ctx, &domain.SheetTracking{
		SpreadsheetID: spreadsheetID,
		Category:      category,
		MatchesHash:   hash,
		LastChecked:   now,
		LastModified:  now,
	})
	if err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return nil
}

// Touch refreshes LastChecked on an unchanged record
func (s *Service) Touch(ctx context.Context, spreadsheetID, category string) error {
	record, err := s.repo.Get(ctx, spreadsheetID, category)
	if err != nil {
		return fmt.Errorf("failed to get tracking: %w", err)
	}
	if record == nil {
		return nil
	}
	record.LastChecked = s.now()
	if err := s.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to touch tracking: %w", err)
	}
	return nil
}

// Reset forgets the fingerprint so the next sync reconciles unconditionally
func (s *Service) Reset(ctx context.Context, spreadsheetID, category string) error {
	if err := s.repo.Delete(ctx, spreadsheetID, category); err != nil {
		return fmt.Errorf("failed to reset tracking: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"spreadsheet_id": spreadsheetID,
		"category":       category,
	}).Info("Tracking reset")
	return nil
}

// Get returns the current record, or nil
func (s *Service) Get(ctx context.Context, spreadsheetID, category string) (*domain.SheetTracking, error) {
	return s.repo.Get(ctx, spreadsheetID, category)
}
