package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

type CreateCaseInput struct {
	ClientID    *string
	LeadID      *string
	ServiceType string
	Package     string
	Phase       models.Phase
	Status      models.CaseStatus
	Note        string
}

type ChangeStatusInput struct {
	CaseID             string
	Status             models.CaseStatus
	Note               string
	PaymentAmountCents *int64
	PaymentMethod      *string
}

type ReopenInput struct {
	CaseID string
	Phase  models.Phase
	Status models.CaseStatus
	Note   string
}

// checkTarget validates a (phase, status) pair.
func checkTarget(phase models.Phase, status models.CaseStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if !phase.Owns(status) {
		return fmt.Errorf("%w: %q is not in phase %d", ErrInvalidTarget, status, phase)
	}
	return nil
}

// transition is what happened while entering a status, for post-commit logging and metrics.
type transition struct {
	from   models.CaseStatus
	to     models.CaseStatus
	issued bool
}

// enter sets status and phase on c and runs the status side effects:
// payment_received issues portal credentials once, completed stamps completion and
// schedules archival. Nothing is persisted.
func (e *Engine) enter(c *models.Case, status models.CaseStatus, now time.Time) (transition, error) {
	t := transition{from: c.Status, to: status}
	phase, ok := models.StatusPhase(status)
	if !ok {
		return t, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if status == models.StatusPaymentReceived && c.Token == nil {
		token, err := e.issuer.NewPortalToken()
		if err != nil {
			return t, fmt.Errorf("issue portal token: %w", err)
		}
		password, err := e.issuer.NewPassword()
		if err != nil {
			return t, fmt.Errorf("issue portal password: %w", err)
		}
		c.Token, c.Password = &token, &password
		t.issued = true
	}
	if status == models.StatusCompleted {
		c.CompletedAt = ptr(now)
		e.archive.Schedule(c)
	}

	c.Status = status
	c.Phase = phase
	c.UpdatedAt = now
	return t, nil
}

// applyStatus enters status, persists the case and appends one timeline event.
func (e *Engine) applyStatus(ctx context.Context, r store.Repo, c *models.Case, status models.CaseStatus,
	kind models.EventKind, note, by string, now time.Time) (transition, error) {
	t, err := e.enter(c, status, now)
	if err != nil {
		return t, err
	}
	if err := r.UpdateCase(ctx, c); err != nil {
		return t, err
	}
	err = r.AppendEvent(ctx, &models.TimelineEvent{
		CaseID:    c.ID,
		Kind:      kind,
		Status:    status,
		Timestamp: now,
		By:        by,
		Note:      note,
	})
	return t, err
}

// committed logs and counts a transition after its transaction succeeded.
func (e *Engine) committed(caseID, by string, t transition) {
	e.metrics.StatusChanged(t.to)
	e.log.Info("case status changed",
		zap.String("case_id", caseID),
		zap.String("from", string(t.from)),
		zap.String("to", string(t.to)),
		zap.String("by", by))
	if t.issued {
		e.metrics.CredentialsIssued()
		e.log.Info("portal credentials issued", zap.String("case_id", caseID))
	}
}

// CreateCase mints a case at the given phase and status. A referenced lead is not converted.
func (e *Engine) CreateCase(ctx context.Context, in CreateCaseInput, operator string) (*models.Case, error) {
	if err := checkTarget(in.Phase, in.Status); err != nil {
		return nil, err
	}

	var (
		out *models.Case
		t   transition
	)
	err := e.tx(ctx, "create_case", func(r store.Repo) error {
		if in.ClientID != nil {
			if _, err := r.GetClient(ctx, *in.ClientID); err != nil {
				return err
			}
		}
		if in.LeadID != nil {
			if _, err := r.GetLead(ctx, *in.LeadID); err != nil {
				return err
			}
		}
		note := in.Note
		if note == "" {
			note = "Case created"
		}
		c, tr, err := e.createCase(ctx, r, in, models.EventCreated, note, operator, e.clock())
		if err != nil {
			return err
		}
		out, t = c, tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.committed(out.ID, operator, t)
	return out, nil
}

// createCase inserts a new case and its first timeline event. Referenced rows must exist.
func (e *Engine) createCase(ctx context.Context, r store.Repo, in CreateCaseInput, kind models.EventKind,
	note, by string, now time.Time) (*models.Case, transition, error) {
	id, err := e.issuer.NewCaseID()
	if err != nil {
		return nil, transition{}, fmt.Errorf("issue case id: %w", err)
	}
	c := &models.Case{
		ID:          id,
		LeadID:      in.LeadID,
		ClientID:    in.ClientID,
		ServiceType: strings.TrimSpace(in.ServiceType),
		Package:     strings.TrimSpace(in.Package),
		CreatedAt:   now,
	}
	t, err := e.enter(c, in.Status, now)
	if err != nil {
		return nil, t, err
	}
	if err := r.InsertCase(ctx, c); err != nil {
		return nil, t, err
	}
	err = r.AppendEvent(ctx, &models.TimelineEvent{
		CaseID:    c.ID,
		Kind:      kind,
		Status:    c.Status,
		Timestamp: now,
		By:        by,
		Note:      note,
	})
	return c, t, err
}

// ChangeStatus moves a case to any status; the phase follows the status.
// Completed or archived cases only leave completion through Reopen.
func (e *Engine) ChangeStatus(ctx context.Context, in ChangeStatusInput, operator string) (*models.Case, error) {
	if in.PaymentAmountCents != nil && *in.PaymentAmountCents <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}

	var (
		out *models.Case
		t   transition
	)
	err := e.tx(ctx, "change_status", func(r store.Repo) error {
		c, err := r.GetCase(ctx, in.CaseID)
		if err != nil {
			return err
		}
		if !in.Status.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
		}
		if c.Archived || c.Status == models.StatusCompleted {
			return fmt.Errorf("%w: case %s is %s, reopen it first", ErrInvalidState, c.ID, closedLabel(c))
		}

		now := e.clock()
		if in.PaymentAmountCents != nil {
			c.PaymentAmountCents = in.PaymentAmountCents
			if err := e.bookPayment(ctx, r, c, *in.PaymentAmountCents, in.PaymentMethod, operator, now); err != nil {
				return err
			}
		}
		if in.PaymentMethod != nil {
			c.PaymentMethod = in.PaymentMethod
		}

		tr, err := e.applyStatus(ctx, r, c, in.Status, models.EventStatusChange, in.Note, operator, now)
		if err != nil {
			return err
		}
		out, t = c, tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.committed(out.ID, operator, t)
	return out, nil
}

// bookPayment writes the ledger entry of a payment captured on a status change.
// Cases without a client only keep the amount on the case.
func (e *Engine) bookPayment(ctx context.Context, r store.Repo, c *models.Case, amount int64, method *string,
	by string, now time.Time) error {
	if c.ClientID == nil {
		return nil
	}
	cl, err := r.GetClient(ctx, *c.ClientID)
	if err != nil {
		return err
	}
	p := &models.Payment{
		ID:          newID(),
		ClientID:    cl.ID,
		CaseID:      ptr(c.ID),
		AmountCents: amount,
		Currency:    cl.Currency,
		RecordedBy:  by,
		RecordedAt:  now,
	}
	if method != nil {
		p.Method = *method
	}
	return e.credit(ctx, r, cl, p)
}

// Reopen returns a completed or archived case to an earlier point of the lifecycle.
func (e *Engine) Reopen(ctx context.Context, in ReopenInput, operator string) (*models.Case, error) {
	if err := checkTarget(in.Phase, in.Status); err != nil {
		return nil, err
	}
	note := in.Note
	if note == "" {
		note = fmt.Sprintf("Application reopened to Phase %d", in.Phase)
	}

	var (
		out *models.Case
		t   transition
	)
	err := e.tx(ctx, "reopen", func(r store.Repo) error {
		c, err := r.GetCase(ctx, in.CaseID)
		if err != nil {
			return err
		}
		if !c.Archived && c.Status != models.StatusCompleted {
			return fmt.Errorf("%w: case %s is %s, not completed", ErrInvalidState, c.ID, c.Status)
		}

		c.Archived = false
		c.CompletedAt = nil
		c.ArchiveAfter = nil
		tr, err := e.applyStatus(ctx, r, c, in.Status, models.EventReopened, note, operator, e.clock())
		if err != nil {
			return err
		}
		out, t = c, tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.committed(out.ID, operator, t)
	e.log.Info("case reopened", zap.String("case_id", out.ID), zap.Int("phase", int(out.Phase)))
	return out, nil
}

// AddCaseNote attaches a note to a case and records it on the timeline.
func (e *Engine) AddCaseNote(ctx context.Context, caseID, body, operator string) (*models.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: note body is empty", ErrInvalidInput)
	}

	var out *models.Note
	err := e.tx(ctx, "add_case_note", func(r store.Repo) error {
		c, err := r.GetCase(ctx, caseID)
		if err != nil {
			return err
		}
		if c.Archived {
			return fmt.Errorf("%w: case %s is archived", ErrInvalidState, c.ID)
		}
		now := e.clock()
		n := &models.Note{ID: newID(), CaseID: ptr(c.ID), Body: body, By: operator, CreatedAt: now}
		if err := r.InsertNote(ctx, n); err != nil {
			return err
		}
		if err := r.AppendEvent(ctx, &models.TimelineEvent{
			CaseID: c.ID, Kind: models.EventNote, Status: c.Status, Timestamp: now, By: operator, Note: body,
		}); err != nil {
			return err
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func closedLabel(c *models.Case) string {
	if c.Archived {
		return "archived"
	}
	return string(c.Status)
}
