package lifecycle

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
	"github.com/brasil-legalize/case-engine/pkg/sanitize"
)

// PortalCase is the client-facing projection of a case.
type PortalCase struct {
	ID               string             `json:"id"`
	ServiceType      string             `json:"service_type"`
	Package          string             `json:"package"`
	Phase            models.Phase       `json:"phase"`
	Status           models.CaseStatus  `json:"status"`
	Archived         bool               `json:"archived"`
	DaysUntilArchive *int               `json:"days_until_archive,omitempty"`
	Timeline         []PortalEvent      `json:"timeline"`
	Documents        []PortalDocument   `json:"documents"`
	Requests         []PortalDocRequest `json:"document_requests"`
}

type PortalEvent struct {
	Kind      models.EventKind  `json:"kind"`
	Status    models.CaseStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	By        string            `json:"by"`
	Note      string            `json:"note"`
}

type PortalDocument struct {
	ID              string                `json:"id"`
	DocumentType    string                `json:"document_type"`
	FileName        string                `json:"file_name"`
	Status          models.DocumentStatus `json:"status"`
	RejectionReason *string               `json:"rejection_reason,omitempty"`
	UploadedAt      time.Time             `json:"uploaded_at"`
}

type PortalDocRequest struct {
	RequestedTypes []string   `json:"requested_types"`
	Outstanding    []string   `json:"outstanding"`
	Message        string     `json:"message"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

// teamActor replaces operator identities on the client-facing timeline.
const teamActor = "team"

// PortalView authenticates a portal token and password and returns the case as the
// client may see it: newest events first, operators anonymised, contact data redacted.
// Unknown tokens and wrong passwords both yield ErrNotFound.
func (e *Engine) PortalView(ctx context.Context, token, password string) (*PortalCase, error) {
	var out *PortalCase
	err := e.store.View(ctx, func(r store.Repo) error {
		c, err := r.FindCaseByToken(ctx, token)
		if err != nil {
			return err
		}
		if c.Password == nil || subtle.ConstantTimeCompare([]byte(*c.Password), []byte(password)) != 1 {
			return fmt.Errorf("portal credentials: %w", ErrNotFound)
		}

		events, err := r.ListEvents(ctx, c.ID)
		if err != nil {
			return err
		}
		docs, err := r.ListDocuments(ctx, store.DocumentFilter{CaseID: c.ID})
		if err != nil {
			return err
		}
		reqs, err := r.ListDocumentRequests(ctx, c.ID)
		if err != nil {
			return err
		}

		view := &PortalCase{
			ID:          c.ID,
			ServiceType: c.ServiceType,
			Package:     c.Package,
			Phase:       c.Phase,
			Status:      c.Status,
			Archived:    c.Archived,
			Timeline:    make([]PortalEvent, 0, len(events)),
			Documents:   make([]PortalDocument, 0, len(docs)),
			Requests:    make([]PortalDocRequest, 0, len(reqs)),
		}
		if days, ok := DaysUntilArchive(c, e.clock()); ok {
			view.DaysUntilArchive = &days
		}
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			view.Timeline = append(view.Timeline, PortalEvent{
				Kind:      ev.Kind,
				Status:    ev.Status,
				Timestamp: ev.Timestamp,
				By:        portalActor(ev.By),
				Note:      sanitize.RedactPII(ev.Note),
			})
		}
		for _, d := range docs {
			view.Documents = append(view.Documents, PortalDocument{
				ID:              d.ID,
				DocumentType:    d.DocumentType,
				FileName:        d.FileName,
				Status:          d.Status,
				RejectionReason: d.RejectionReason,
				UploadedAt:      d.UploadedAt,
			})
		}
		for i := range reqs {
			view.Requests = append(view.Requests, PortalDocRequest{
				RequestedTypes: reqs[i].RequestedTypes,
				Outstanding:    OutstandingTypes(&reqs[i], docs),
				Message:        reqs[i].Message,
				DueDate:        reqs[i].DueDate,
			})
		}
		out = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func portalActor(by string) string {
	switch by {
	case models.ActorClient, models.ActorSystem:
		return by
	}
	return teamActor
}
