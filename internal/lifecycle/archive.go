package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

// DefaultRetention applies when no retention is configured.
const DefaultRetention = 90 * 24 * time.Hour

// ArchiveDue is what DaysUntilArchive reports once the archive time has passed.
const ArchiveDue = 0

const day = 24 * time.Hour

// ArchiveScheduler computes when completed cases become read-only.
type ArchiveScheduler struct {
	Retention time.Duration
}

// Schedule sets ArchiveAfter from CompletedAt. Cases without CompletedAt are left alone.
func (s ArchiveScheduler) Schedule(c *models.Case) {
	if c.CompletedAt == nil {
		return
	}
	at := c.CompletedAt.Add(s.Retention)
	c.ArchiveAfter = &at
}

// DaysUntilArchive returns the whole days left before c is archived, rounded up.
// It reports ArchiveDue when the time has passed and false when nothing is scheduled.
func DaysUntilArchive(c *models.Case, now time.Time) (int, bool) {
	if c.Archived {
		return ArchiveDue, true
	}
	if c.ArchiveAfter == nil {
		return 0, false
	}
	left := c.ArchiveAfter.Sub(now)
	if left <= 0 {
		return ArchiveDue, true
	}
	return int((left + day - 1) / day), true
}

// DaysUntilArchive looks the case up and applies DaysUntilArchive at the current time.
func (e *Engine) DaysUntilArchive(ctx context.Context, caseID string) (int, bool, error) {
	var c *models.Case
	err := e.store.View(ctx, func(r store.Repo) error {
		var err error
		c, err = r.GetCase(ctx, caseID)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	days, ok := DaysUntilArchive(c, e.clock())
	return days, ok, nil
}

// EnforceArchival archives every completed case whose archive time has passed and
// returns how many it archived. Each case is re-checked in its own transaction, so a
// case reopened meanwhile is skipped and running it twice is harmless.
func (e *Engine) EnforceArchival(ctx context.Context) (int, error) {
	var ids []string
	err := e.store.Tx(ctx, func(r store.Repo) error {
		var err error
		ids, err = r.ListArchivable(ctx, e.clock())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list archivable cases: %w", err)
	}

	var (
		archived int
		errs     []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		done, err := e.archiveOne(ctx, id)
		if err != nil {
			e.log.Warn("archive case failed", zap.String("case_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("archive %s: %w", id, err))
			continue
		}
		if done {
			archived++
		}
	}
	if archived > 0 {
		e.metrics.CasesArchived(archived)
	}
	e.log.Info("archival sweep finished",
		zap.Int("candidates", len(ids)),
		zap.Int("archived", archived))
	return archived, errors.Join(errs...)
}

func (e *Engine) archiveOne(ctx context.Context, id string) (bool, error) {
	var done bool
	err := e.tx(ctx, "archive", func(r store.Repo) error {
		done = false
		c, err := r.GetCase(ctx, id)
		if err != nil {
			return err
		}
		now := e.clock()
		if c.Archived || c.Status != models.StatusCompleted || c.CompletedAt == nil ||
			c.ArchiveAfter == nil || c.ArchiveAfter.After(now) {
			return nil
		}
		c.Archived = true
		c.UpdatedAt = now
		if err := r.UpdateCase(ctx, c); err != nil {
			return err
		}
		if err := r.AppendEvent(ctx, &models.TimelineEvent{
			CaseID:    c.ID,
			Kind:      models.EventArchived,
			Status:    c.Status,
			Timestamp: now,
			By:        models.ActorSystem,
			Note:      "Archived after retention period",
		}); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}
