package lifecycle

import (
	"context"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

// GetCase returns a case with its timeline (oldest first), documents, notes and requests.
func (e *Engine) GetCase(ctx context.Context, id string) (*models.Case, error) {
	var out *models.Case
	err := e.store.View(ctx, func(r store.Repo) error {
		c, err := r.GetCase(ctx, id)
		if err != nil {
			return err
		}
		if c.Timeline, err = r.ListEvents(ctx, id); err != nil {
			return err
		}
		if c.Documents, err = r.ListDocuments(ctx, store.DocumentFilter{CaseID: id}); err != nil {
			return err
		}
		if c.Notes, err = r.ListNotes(ctx, store.NoteFilter{CaseID: id}); err != nil {
			return err
		}
		if c.DocumentRequests, err = r.ListDocumentRequests(ctx, id); err != nil {
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

// ListCases returns bare cases, newest first, and the total matching count.
func (e *Engine) ListCases(ctx context.Context, f store.CaseFilter) ([]models.Case, int64, error) {
	var (
		items []models.Case
		total int64
	)
	err := e.store.View(ctx, func(r store.Repo) error {
		var err error
		items, total, err = r.ListCases(ctx, f)
		return err
	})
	return items, total, err
}

func (e *Engine) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var out *models.Lead
	err := e.store.View(ctx, func(r store.Repo) error {
		var err error
		out, err = r.GetLead(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) ListLeads(ctx context.Context, f store.LeadFilter) ([]models.Lead, int64, error) {
	var (
		items []models.Lead
		total int64
	)
	err := e.store.View(ctx, func(r store.Repo) error {
		var err error
		items, total, err = r.ListLeads(ctx, f)
		return err
	})
	return items, total, err
}

func (e *Engine) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var out *models.Document
	err := e.store.View(ctx, func(r store.Repo) error {
		var err error
		out, err = r.GetDocument(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListDocuments returns a case's documents in upload order. The case must exist.
func (e *Engine) ListDocuments(ctx context.Context, f store.DocumentFilter) ([]models.Document, error) {
	var out []models.Document
	err := e.store.View(ctx, func(r store.Repo) error {
		if _, err := r.GetCase(ctx, f.CaseID); err != nil {
			return err
		}
		var err error
		out, err = r.ListDocuments(ctx, f)
		return err
	})
	return out, err
}

func (e *Engine) ListDocumentRequests(ctx context.Context, caseID string) ([]models.DocumentRequest, error) {
	var out []models.DocumentRequest
	err := e.store.View(ctx, func(r store.Repo) error {
		if _, err := r.GetCase(ctx, caseID); err != nil {
			return err
		}
		var err error
		out, err = r.ListDocumentRequests(ctx, caseID)
		return err
	})
	return out, err
}
