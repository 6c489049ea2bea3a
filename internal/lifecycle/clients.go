package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

type ClientInput struct {
	Name          string
	Email         string
	Phone         string
	Country       string
	TotalDueCents int64
	Currency      string
}

type PaymentInput struct {
	CaseID      *string
	AmountCents int64
	Currency    string
	Method      string
}

const defaultCurrency = "BRL"

func (e *Engine) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: client name is empty", ErrInvalidInput)
	}
	if in.TotalDueCents < 0 {
		return nil, fmt.Errorf("%w: total due cannot be negative", ErrInvalidInput)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := e.clock()
	cl := &models.Client{
		ID:            newID(),
		Name:          name,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         strings.TrimSpace(in.Phone),
		Country:       strings.TrimSpace(in.Country),
		TotalDueCents: in.TotalDueCents,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.tx(ctx, "create_client", func(r store.Repo) error {
		return r.InsertClient(ctx, cl)
	}); err != nil {
		return nil, err
	}
	return cl, nil
}

// GetClient returns a client with its ledger, notes, communications and case references.
func (e *Engine) GetClient(ctx context.Context, id string) (*models.Client, error) {
	var out *models.Client
	err := e.store.View(ctx, func(r store.Repo) error {
		cl, err := r.GetClient(ctx, id)
		if err != nil {
			return err
		}
		if cl.Payments, err = r.ListPayments(ctx, id); err != nil {
			return err
		}
		if cl.Notes, err = r.ListNotes(ctx, store.NoteFilter{ClientID: id}); err != nil {
			return err
		}
		if cl.Communications, err = r.ListCommunications(ctx, id); err != nil {
			return err
		}
		if cl.Cases, err = r.ListCaseRefs(ctx, id); err != nil {
			return err
		}
		out = cl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) AddClientNote(ctx context.Context, clientID, body, operator string) (*models.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: note body is empty", ErrInvalidInput)
	}
	var out *models.Note
	err := e.tx(ctx, "add_client_note", func(r store.Repo) error {
		if _, err := r.GetClient(ctx, clientID); err != nil {
			return err
		}
		n := &models.Note{ID: newID(), ClientID: ptr(clientID), Body: body, By: operator, CreatedAt: e.clock()}
		if err := r.InsertNote(ctx, n); err != nil {
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

// LogCommunication records that a contact happened. Nothing is sent.
func (e *Engine) LogCommunication(ctx context.Context, clientID string, channel models.Channel, summary, operator string) (*models.Communication, error) {
	switch channel {
	case models.ChannelEmail, models.ChannelWhatsApp, models.ChannelPhone, models.ChannelMeeting:
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, channel)
	}
	var out *models.Communication
	err := e.tx(ctx, "log_communication", func(r store.Repo) error {
		if _, err := r.GetClient(ctx, clientID); err != nil {
			return err
		}
		c := &models.Communication{
			ID:       newID(),
			ClientID: clientID,
			Channel:  channel,
			Summary:  strings.TrimSpace(summary),
			By:       operator,
			At:       e.clock(),
		}
		if err := r.InsertCommunication(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordPayment books a payment and updates the client's paid/due aggregate in one unit.
// The payment must be in the client's currency.
func (e *Engine) RecordPayment(ctx context.Context, clientID string, in PaymentInput, operator string) (*models.Payment, error) {
	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidInput)
	}
	var out *models.Payment
	err := e.tx(ctx, "record_payment", func(r store.Repo) error {
		cl, err := r.GetClient(ctx, clientID)
		if err != nil {
			return err
		}
		if in.CaseID != nil {
			c, err := r.GetCase(ctx, *in.CaseID)
			if err != nil {
				return err
			}
			if c.ClientID == nil || *c.ClientID != clientID {
				return fmt.Errorf("%w: case %s does not belong to client %s", ErrInvalidInput, c.ID, clientID)
			}
		}
		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = cl.Currency
		}
		if currency != cl.Currency {
			return fmt.Errorf("%w: payment in %s for a client billed in %s", ErrInvalidInput, currency, cl.Currency)
		}
		p := &models.Payment{
			ID:          newID(),
			ClientID:    clientID,
			CaseID:      in.CaseID,
			AmountCents: in.AmountCents,
			Currency:    currency,
			Method:      strings.TrimSpace(in.Method),
			RecordedBy:  operator,
			RecordedAt:  e.clock(),
		}
		if err := e.credit(ctx, r, cl, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("payment recorded",
		zap.String("client_id", clientID),
		zap.Int64("amount_cents", out.AmountCents),
		zap.String("by", operator))
	return out, nil
}

// credit inserts p and applies it to the client's aggregate. Due never goes below zero.
func (e *Engine) credit(ctx context.Context, r store.Repo, cl *models.Client, p *models.Payment) error {
	if err := r.InsertPayment(ctx, p); err != nil {
		return err
	}
	cl.TotalPaidCents += p.AmountCents
	cl.TotalDueCents -= p.AmountCents
	if cl.TotalDueCents < 0 {
		cl.TotalDueCents = 0
	}
	cl.UpdatedAt = p.RecordedAt
	return r.UpdateClient(ctx, cl)
}
