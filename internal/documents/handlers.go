// Package documents serves document uploads, reviews and document requests, plus the
// public upload-link endpoints clients reach without an account.
package documents

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/internal/uploadlinks"
	"github.com/brasil-legalize/case-engine/pkg/httperr"
	"github.com/brasil-legalize/case-engine/pkg/models"
	"github.com/brasil-legalize/case-engine/pkg/validation"
)

// ObjectStore holds document bytes. *storage.Supabase implements it.
type ObjectStore interface {
	ObjectKey(caseID, filename string) string
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// LinkCache is the optional upload-link cache. *uploadlinks.Registry implements it.
type LinkCache interface {
	Put(ctx context.Context, token string, l uploadlinks.Link) error
	Lookup(ctx context.Context, token string) (uploadlinks.Link, bool, error)
}

type Config struct {
	Objects           ObjectStore
	Links             LinkCache // nil disables caching
	SignedURLLifetime time.Duration
	MaxFileBytes      int64
	Logger            *zap.Logger
}

type Handler struct {
	eng     *lifecycle.Engine
	objects ObjectStore
	links   LinkCache
	urlTTL  time.Duration
	maxSize int64
	log     *zap.Logger
	now     func() time.Time
}

func NewHandler(eng *lifecycle.Engine, cfg Config) *Handler {
	h := &Handler{
		eng:     eng,
		objects: cfg.Objects,
		links:   cfg.Links,
		urlTTL:  cfg.SignedURLLifetime,
		maxSize: cfg.MaxFileBytes,
		log:     cfg.Logger,
		now:     time.Now,
	}
	if h.urlTTL <= 0 {
		h.urlTTL = 5 * time.Minute
	}
	if h.maxSize <= 0 {
		h.maxSize = 10 << 20
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// ===== DTOs =====

type ReviewRequest struct {
	Decision        string `json:"decision" validate:"required,oneof=approved rejected"`
	RejectionReason string `json:"rejection_reason" validate:"max=1000"`
}

type CreateRequestRequest struct {
	ClientID       *string    `json:"client_id" validate:"omitempty,uuid"`
	RequestedTypes []string   `json:"requested_types" validate:"required,min=1,max=20,dive,doctype"`
	Message        string     `json:"message" validate:"max=2000"`
	DueDate        *time.Time `json:"due_date"`
}

// RequestView is a document request with the types still missing.
type RequestView struct {
	models.DocumentRequest
	Outstanding []string `json:"outstanding"`
}

// LinkView is what the public upload page shows. It never carries case details.
type LinkView struct {
	RequestedTypes []string   `json:"requested_types"`
	Outstanding    []string   `json:"outstanding"`
	Message        string     `json:"message"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

/* ============================== Operator side ============================== */

// Upload Document godoc
// @Summary      Upload a document to a case
// @Description  Operator uploads one file (PDF/PNG/JPEG); it lands in storage and is registered as pending
// @Tags         documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Param        id             path     string true  "case id"
// @Param        document_type  formData string true  "e.g. passport"
// @Param        request_id     formData string false "document request id"
// @Param        file           formData file   true  "PDF/PNG/JPEG"
// @Router       /cases/{id}/documents [post]
func (h *Handler) Upload(c *fiber.Ctx) error {
	caseID := c.Params("id")
	in, err := h.receive(c, caseID)
	if err != nil {
		return err
	}
	if rid := strings.TrimSpace(c.FormValue("request_id")); rid != "" {
		in.RequestID = &rid
	}

	doc, err := h.eng.UploadDocument(c.UserContext(), in, auth.MustOperatorID(c))
	if err != nil {
		h.discard(in.StorageKey)
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// List Documents godoc
// @Summary      List case documents
// @Tags         documents
// @Security     BearerAuth
// @Param        status      query string false "pending|approved|rejected"
// @Param        request_id  query string false "document request id"
// @Router       /cases/{id}/documents [get]
func (h *Handler) List(c *fiber.Ctx) error {
	f := store.DocumentFilter{CaseID: c.Params("id"), RequestID: strings.TrimSpace(c.Query("request_id"))}
	if raw := c.Query("status"); raw != "" {
		st := models.DocumentStatus(raw)
		switch st {
		case models.DocPending, models.DocApproved, models.DocRejected:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status must be pending, approved or rejected")
		}
		f.Status = &st
	}
	docs, err := h.eng.ListDocuments(c.UserContext(), f)
	if err != nil {
		return httperr.From(err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return c.JSON(docs)
}

// Get Document godoc
// @Summary      Document metadata
// @Tags         documents
// @Security     BearerAuth
// @Router       /documents/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	doc, err := h.eng.GetDocument(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(doc)
}

// Signed Download URL godoc
// @Summary      Get signed URL
// @Description  Short-lived URL to download the document bytes
// @Tags         documents
// @Security     BearerAuth
// @Router       /documents/{id}/signed-url [get]
func (h *Handler) SignedURL(c *fiber.Ctx) error {
	doc, err := h.eng.GetDocument(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.From(err)
	}
	url, err := h.objects.SignedURL(c.UserContext(), doc.StorageKey, h.urlTTL)
	if err != nil {
		h.log.Error("sign document url", zap.String("document_id", doc.ID), zap.Error(err))
		return fiber.ErrBadGateway
	}
	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": int(h.urlTTL / time.Second),
		"now":        h.now().UTC(),
	})
}

// Review Document godoc
// @Summary      Approve or reject a pending document
// @Description  One-way: a reviewed document cannot be reviewed again. Rejection needs a reason.
// @Tags         documents
// @Security     BearerAuth
// @Param        payload  body ReviewRequest true "decision"
// @Router       /documents/{id}/review [post]
func (h *Handler) Review(c *fiber.Ctx) error {
	var in ReviewRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	doc, err := h.eng.ReviewDocument(c.UserContext(), lifecycle.ReviewInput{
		DocumentID:      c.Params("id"),
		Decision:        models.DocumentStatus(in.Decision),
		RejectionReason: in.RejectionReason,
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(doc)
}

// Create Document Request godoc
// @Summary      Request documents from the client
// @Description  Mints an upload link. A case in phase 3 moves to documents_pending.
// @Tags         documents
// @Security     BearerAuth
// @Param        payload  body CreateRequestRequest true "types"
// @Router       /cases/{id}/document-requests [post]
func (h *Handler) CreateRequest(c *fiber.Ctx) error {
	var in CreateRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	req, err := h.eng.CreateDocumentRequest(c.UserContext(), lifecycle.DocumentRequestInput{
		ClientID:       in.ClientID,
		CaseID:         c.Params("id"),
		RequestedTypes: in.RequestedTypes,
		Message:        in.Message,
		DueDate:        in.DueDate,
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	h.cache(c.UserContext(), req)
	return c.Status(fiber.StatusCreated).JSON(RequestView{DocumentRequest: *req, Outstanding: req.RequestedTypes})
}

// List Document Requests godoc
// @Summary      Document requests of a case, with outstanding types
// @Tags         documents
// @Security     BearerAuth
// @Router       /cases/{id}/document-requests [get]
func (h *Handler) ListRequests(c *fiber.Ctx) error {
	ctx := c.UserContext()
	caseID := c.Params("id")
	reqs, err := h.eng.ListDocumentRequests(ctx, caseID)
	if err != nil {
		return httperr.From(err)
	}
	docs, err := h.eng.ListDocuments(ctx, store.DocumentFilter{CaseID: caseID})
	if err != nil {
		return httperr.From(err)
	}
	out := make([]RequestView, 0, len(reqs))
	for i := range reqs {
		out = append(out, RequestView{
			DocumentRequest: reqs[i],
			Outstanding:     lifecycle.OutstandingTypes(&reqs[i], docs),
		})
	}
	return c.JSON(out)
}

/* =============================== Public side =============================== */

// Upload Link godoc
// @Summary      Resolve an upload link
// @Tags         upload
// @Param        token  path string true "upload token"
// @Router       /upload/{token} [get]
func (h *Handler) ShowLink(c *fiber.Ctx) error {
	link, err := h.resolve(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	docs, err := h.eng.ListDocuments(c.UserContext(), store.DocumentFilter{CaseID: link.CaseID, RequestID: link.RequestID})
	if err != nil {
		return httperr.From(err)
	}
	req := &models.DocumentRequest{ID: link.RequestID, RequestedTypes: link.RequestedTypes}
	return c.JSON(LinkView{
		RequestedTypes: link.RequestedTypes,
		Outstanding:    lifecycle.OutstandingTypes(req, docs),
		Message:        link.Message,
		DueDate:        link.DueDate,
	})
}

// Upload via Link godoc
// @Summary      Client uploads a requested document
// @Tags         upload
// @Accept       multipart/form-data
// @Param        token          path     string true "upload token"
// @Param        document_type  formData string true "one of the requested types"
// @Param        file           formData file   true "PDF/PNG/JPEG"
// @Router       /upload/{token}/documents [post]
func (h *Handler) UploadViaLink(c *fiber.Ctx) error {
	token := c.Params("token")
	link, err := h.resolve(c.UserContext(), token)
	if err != nil {
		return err
	}
	in, err := h.receive(c, link.CaseID)
	if err != nil {
		return err
	}

	doc, err := h.eng.UploadViaLink(c.UserContext(), token, in)
	if err != nil {
		h.discard(in.StorageKey)
		return httperr.From(err)
	}
	// Clients see their receipt, not review internals
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":            doc.ID,
		"document_type": doc.DocumentType,
		"file_name":     doc.FileName,
		"status":        doc.Status,
		"uploaded_at":   doc.UploadedAt,
	})
}

/* ================================ Helpers ================================= */

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// receive validates the multipart file and streams it to object storage.
func (h *Handler) receive(c *fiber.Ctx, caseID string) (lifecycle.UploadDocumentInput, error) {
	var in lifecycle.UploadDocumentInput

	docType := strings.TrimSpace(c.FormValue("document_type"))
	if docType == "" {
		return in, fiber.NewError(fiber.StatusBadRequest, "document_type is required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "multipart form with a file field is required")
	}
	if fh.Size <= 0 {
		return in, fiber.NewError(fiber.StatusBadRequest, "empty file")
	}
	if fh.Size > h.maxSize {
		return in, fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !allowedTypes[ct] {
		return in, fiber.NewError(fiber.StatusUnsupportedMediaType, "only PDF, PNG or JPEG are allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "open failed")
	}
	defer f.Close()

	key := h.objects.ObjectKey(caseID, fh.Filename)
	if err := h.objects.Upload(c.UserContext(), key, f, ct); err != nil {
		h.log.Error("store document", zap.String("case_id", caseID), zap.Error(err))
		return in, fiber.NewError(fiber.StatusBadGateway, "upload failed")
	}

	return lifecycle.UploadDocumentInput{
		CaseID:       caseID,
		DocumentType: docType,
		FileName:     filepath.Base(fh.Filename),
		MimeType:     ct,
		SizeBytes:    fh.Size,
		StorageKey:   key,
	}, nil
}

// discard removes an object the engine refused to register.
func (h *Handler) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.objects.Delete(ctx, key); err != nil {
		h.log.Warn("remove orphaned object", zap.String("key", key), zap.Error(err))
	}
}

// resolve reads the link from the cache, falling back to the database.
func (h *Handler) resolve(ctx context.Context, token string) (uploadlinks.Link, error) {
	var link uploadlinks.Link
	hit := false
	if h.links != nil {
		l, ok, err := h.links.Lookup(ctx, token)
		if err != nil {
			h.log.Warn("upload link cache lookup", zap.Error(err))
		}
		link, hit = l, ok
	}
	if !hit {
		req, err := h.eng.ResolveUploadLink(ctx, token)
		if err != nil {
			return link, httperr.From(err)
		}
		link = uploadlinks.FromRequest(req)
		h.cache(ctx, req)
	}
	if link.DueDate != nil && h.now().After(*link.DueDate) {
		return link, fiber.NewError(fiber.StatusGone, "upload link expired")
	}
	return link, nil
}

func (h *Handler) cache(ctx context.Context, req *models.DocumentRequest) {
	if h.links == nil {
		return
	}
	if err := h.links.Put(ctx, req.UploadToken, uploadlinks.FromRequest(req)); err != nil {
		h.log.Warn("cache upload link", zap.String("request_id", req.ID), zap.Error(err))
	}
}
