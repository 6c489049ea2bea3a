package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

type UploadDocumentInput struct {
	CaseID       string
	RequestID    *string
	DocumentType string
	FileName     string
	MimeType     string
	SizeBytes    int64
	StorageKey   string
}

type ReviewInput struct {
	DocumentID      string
	Decision        models.DocumentStatus
	RejectionReason string
}

type DocumentRequestInput struct {
	ClientID       *string
	CaseID         string
	RequestedTypes []string
	Message        string
	DueDate        *time.Time
}

func (in UploadDocumentInput) check() error {
	switch {
	case strings.TrimSpace(in.DocumentType) == "":
		return fmt.Errorf("%w: document type is empty", ErrInvalidInput)
	case strings.TrimSpace(in.FileName) == "":
		return fmt.Errorf("%w: file name is empty", ErrInvalidInput)
	case strings.TrimSpace(in.StorageKey) == "":
		return fmt.Errorf("%w: storage key is empty", ErrInvalidInput)
	case in.SizeBytes <= 0:
		return fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	return nil
}

// UploadDocument registers a pending document uploaded by an operator.
func (e *Engine) UploadDocument(ctx context.Context, in UploadDocumentInput, operator string) (*models.Document, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	var out *models.Document
	err := e.tx(ctx, "upload_document", func(r store.Repo) error {
		if in.RequestID != nil {
			req, err := r.GetDocumentRequest(ctx, *in.RequestID)
			if err != nil {
				return err
			}
			if req.CaseID != in.CaseID {
				return fmt.Errorf("%w: request %s belongs to another case", ErrInvalidInput, req.ID)
			}
		}
		d, err := e.addDocument(ctx, r, in, models.UploadedByAdmin, operator, operator)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UploadViaLink registers a client upload against the request behind an upload-link token.
// The document type must be one of the requested types.
func (e *Engine) UploadViaLink(ctx context.Context, token string, in UploadDocumentInput) (*models.Document, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	var out *models.Document
	err := e.tx(ctx, "upload_via_link", func(r store.Repo) error {
		req, err := r.FindDocumentRequestByToken(ctx, token)
		if err != nil {
			return err
		}
		if !slices.Contains(req.RequestedTypes, strings.TrimSpace(in.DocumentType)) {
			return fmt.Errorf("%w: %q was not requested", ErrInvalidTarget, in.DocumentType)
		}
		in.CaseID = req.CaseID
		in.RequestID = ptr(req.ID)
		d, err := e.addDocument(ctx, r, in, models.UploadedByClient, models.ActorClient, models.ActorClient)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) addDocument(ctx context.Context, r store.Repo, in UploadDocumentInput, kind models.UploaderType,
	uploader, by string) (*models.Document, error) {
	c, err := r.GetCase(ctx, in.CaseID)
	if err != nil {
		return nil, err
	}
	if c.Archived {
		return nil, fmt.Errorf("%w: case %s is archived", ErrInvalidState, c.ID)
	}
	now := e.clock()
	d := &models.Document{
		ID:             newID(),
		CaseID:         c.ID,
		ClientID:       c.ClientID,
		RequestID:      in.RequestID,
		DocumentType:   strings.TrimSpace(in.DocumentType),
		FileName:       strings.TrimSpace(in.FileName),
		MimeType:       in.MimeType,
		SizeBytes:      in.SizeBytes,
		StorageKey:     in.StorageKey,
		Status:         models.DocPending,
		UploadedByType: kind,
		UploadedBy:     uploader,
		UploadedAt:     now,
	}
	if err := r.InsertDocument(ctx, d); err != nil {
		return nil, err
	}
	err = r.AppendEvent(ctx, &models.TimelineEvent{
		CaseID:    c.ID,
		Kind:      models.EventDocument,
		Status:    c.Status,
		Timestamp: now,
		By:        by,
		Note:      fmt.Sprintf("Document uploaded: %s (%s)", d.DocumentType, d.FileName),
	})
	return d, err
}

// ReviewDocument approves or rejects a pending document. Both outcomes are final.
func (e *Engine) ReviewDocument(ctx context.Context, in ReviewInput, reviewer string) (*models.Document, error) {
	if in.Decision != models.DocApproved && in.Decision != models.DocRejected {
		return nil, fmt.Errorf("%w: decision %q", ErrInvalidStatus, in.Decision)
	}
	reason := strings.TrimSpace(in.RejectionReason)

	var out *models.Document
	err := e.tx(ctx, "review_document", func(r store.Repo) error {
		d, err := r.GetDocument(ctx, in.DocumentID)
		if err != nil {
			return err
		}
		if d.Status != models.DocPending {
			return fmt.Errorf("%w: document %s is already %s", ErrInvalidState, d.ID, d.Status)
		}
		if in.Decision == models.DocRejected && reason == "" {
			return ErrMissingReason
		}
		c, err := r.GetCase(ctx, d.CaseID)
		if err != nil {
			return err
		}
		if c.Archived {
			return fmt.Errorf("%w: case %s is archived", ErrInvalidState, c.ID)
		}

		now := e.clock()
		d.Status = in.Decision
		d.ReviewedBy = ptr(reviewer)
		d.ReviewedAt = ptr(now)
		note := fmt.Sprintf("Document approved: %s", d.DocumentType)
		if in.Decision == models.DocRejected {
			d.RejectionReason = ptr(reason)
			note = fmt.Sprintf("Document rejected: %s (%s)", d.DocumentType, reason)
		}
		if err := r.UpdateDocument(ctx, d); err != nil {
			return err
		}
		if err := r.AppendEvent(ctx, &models.TimelineEvent{
			CaseID: c.ID, Kind: models.EventDocument, Status: c.Status, Timestamp: now, By: reviewer, Note: note,
		}); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("document reviewed",
		zap.String("document_id", out.ID),
		zap.String("case_id", out.CaseID),
		zap.String("decision", string(out.Status)),
		zap.String("by", reviewer))
	return out, nil
}

// CreateDocumentRequest asks the client for a batch of document types through a fresh
// upload link. A case in phase 3 moves to documents_pending in the same unit.
func (e *Engine) CreateDocumentRequest(ctx context.Context, in DocumentRequestInput, operator string) (*models.DocumentRequest, error) {
	types := normalizeTypes(in.RequestedTypes)
	if len(types) == 0 {
		return nil, ErrEmptyRequest
	}

	var (
		out   *models.DocumentRequest
		moved *transition
	)
	err := e.tx(ctx, "create_document_request", func(r store.Repo) error {
		moved = nil
		c, err := r.GetCase(ctx, in.CaseID)
		if err != nil {
			return err
		}
		if c.Archived {
			return fmt.Errorf("%w: case %s is archived", ErrInvalidState, c.ID)
		}
		clientID := c.ClientID
		if in.ClientID != nil {
			if c.ClientID != nil && *c.ClientID != *in.ClientID {
				return fmt.Errorf("%w: case %s belongs to another client", ErrInvalidInput, c.ID)
			}
			if _, err := r.GetClient(ctx, *in.ClientID); err != nil {
				return err
			}
			clientID = in.ClientID
		}

		token, err := e.issuer.NewUploadToken()
		if err != nil {
			return fmt.Errorf("issue upload token: %w", err)
		}
		now := e.clock()
		req := &models.DocumentRequest{
			ID:             newID(),
			CaseID:         c.ID,
			ClientID:       clientID,
			RequestedTypes: types,
			Message:        strings.TrimSpace(in.Message),
			DueDate:        in.DueDate,
			UploadToken:    token,
			CreatedBy:      operator,
			CreatedAt:      now,
		}
		if err := r.InsertDocumentRequest(ctx, req); err != nil {
			return err
		}
		if err := r.AppendEvent(ctx, &models.TimelineEvent{
			CaseID:    c.ID,
			Kind:      models.EventDocument,
			Status:    c.Status,
			Timestamp: now,
			By:        operator,
			Note:      "Document request created: " + strings.Join(types, ", "),
		}); err != nil {
			return err
		}

		if c.Phase == models.PhaseActiveClient && c.Status != models.StatusDocumentsPending {
			t, err := e.applyStatus(ctx, r, c, models.StatusDocumentsPending, models.EventStatusChange,
				"Document request sent to client", operator, now)
			if err != nil {
				return err
			}
			moved = &t
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	if moved != nil {
		e.committed(out.CaseID, operator, *moved)
	}
	e.log.Info("document request created",
		zap.String("case_id", out.CaseID),
		zap.Strings("types", out.RequestedTypes),
		zap.String("by", operator))
	return out, nil
}

// ResolveUploadLink returns the request an upload-link token points to.
func (e *Engine) ResolveUploadLink(ctx context.Context, token string) (*models.DocumentRequest, error) {
	var out *models.DocumentRequest
	err := e.store.View(ctx, func(r store.Repo) error {
		req, err := r.FindDocumentRequestByToken(ctx, token)
		out = req
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OutstandingTypes lists the requested types that have no pending or approved document
// yet, in request order. docs may span the whole case; only those tied to req count.
func OutstandingTypes(req *models.DocumentRequest, docs []models.Document) []string {
	covered := map[string]bool{}
	for _, d := range docs {
		if d.RequestID == nil || *d.RequestID != req.ID || d.Status == models.DocRejected {
			continue
		}
		covered[d.DocumentType] = true
	}
	out := []string{}
	for _, t := range req.RequestedTypes {
		if !covered[t] {
			out = append(out, t)
		}
	}
	return out
}

// normalizeTypes trims, drops blanks and de-duplicates while keeping order.
func normalizeTypes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
