package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

type LeadInput struct {
	Name              string
	Email             string
	Phone             string
	Country           string
	ServiceType       string
	EligibilityResult string
	Message           string
}

// ConvertLeadInput tunes the case created from a lead. Zero values mean phase 1,
// status new and the lead's own service type.
type ConvertLeadInput struct {
	ClientID    *string
	ServiceType string
	Package     string
	Phase       models.Phase
	Status      models.CaseStatus
	Note        string
}

// CreateLead captures an intake submission.
func (e *Engine) CreateLead(ctx context.Context, in LeadInput) (*models.Lead, error) {
	name := strings.TrimSpace(in.Name)
	service := strings.TrimSpace(in.ServiceType)
	if name == "" || service == "" {
		return nil, fmt.Errorf("%w: lead needs a name and a service type", ErrInvalidInput)
	}
	now := e.clock()
	l := &models.Lead{
		ID:                newID(),
		Name:              name,
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:             strings.TrimSpace(in.Phone),
		Country:           strings.TrimSpace(in.Country),
		ServiceType:       service,
		EligibilityResult: strings.TrimSpace(in.EligibilityResult),
		Message:           strings.TrimSpace(in.Message),
		Status:            models.LeadNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.tx(ctx, "create_lead", func(r store.Repo) error {
		return r.InsertLead(ctx, l)
	}); err != nil {
		return nil, err
	}
	e.log.Info("lead captured", zap.String("lead_id", l.ID), zap.String("service_type", l.ServiceType))
	return l, nil
}

// ConvertLead turns a new lead into a case, linking the given client or creating one from
// the lead's contact fields. Lead, client and case are written in one unit.
func (e *Engine) ConvertLead(ctx context.Context, leadID string, in ConvertLeadInput, operator string) (*models.Case, error) {
	if in.Phase == 0 {
		in.Phase = models.PhaseLead
	}
	if in.Status == "" {
		in.Status = models.StatusNew
	}
	if err := checkTarget(in.Phase, in.Status); err != nil {
		return nil, err
	}

	var (
		out *models.Case
		t   transition
	)
	err := e.tx(ctx, "convert_lead", func(r store.Repo) error {
		l, err := r.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		if l.Status == models.LeadConverted {
			return fmt.Errorf("%w: lead %s", ErrAlreadyConverted, l.ID)
		}
		now := e.clock()

		clientID := in.ClientID
		if clientID != nil {
			if _, err := r.GetClient(ctx, *clientID); err != nil {
				return err
			}
		} else {
			cl := &models.Client{
				ID:        newID(),
				Name:      l.Name,
				Email:     l.Email,
				Phone:     l.Phone,
				Country:   l.Country,
				Currency:  defaultCurrency,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := r.InsertClient(ctx, cl); err != nil {
				return err
			}
			clientID = ptr(cl.ID)
		}

		service := strings.TrimSpace(in.ServiceType)
		if service == "" {
			service = l.ServiceType
		}
		note := in.Note
		if note == "" {
			note = "Converted from lead " + l.ID
		}
		c, tr, err := e.createCase(ctx, r, CreateCaseInput{
			ClientID:    clientID,
			LeadID:      ptr(l.ID),
			ServiceType: service,
			Package:     in.Package,
			Phase:       in.Phase,
			Status:      in.Status,
		}, models.EventConversion, note, operator, now)
		if err != nil {
			return err
		}

		l.Status = models.LeadConverted
		l.ConvertedCaseID = ptr(c.ID)
		l.ConvertedAt = ptr(now)
		l.UpdatedAt = now
		if err := r.UpdateLead(ctx, l); err != nil {
			return err
		}
		out, t = c, tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.committed(out.ID, operator, t)
	e.log.Info("lead converted", zap.String("lead_id", leadID), zap.String("case_id", out.ID))
	return out, nil
}
