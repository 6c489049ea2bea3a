package cases

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/httperr"
	"github.com/brasil-legalize/case-engine/pkg/models"
	"github.com/brasil-legalize/case-engine/pkg/validation"
)

// ===== DTOs =====

type CreateCaseRequest struct {
	ClientID    *string `json:"client_id" validate:"omitempty,uuid"`
	LeadID      *string `json:"lead_id" validate:"omitempty,uuid"`
	ServiceType string  `json:"service_type" validate:"required,max=80"`
	Package     string  `json:"package" validate:"max=80"`
	Phase       int     `json:"phase" validate:"required,min=1,max=4"`
	Status      string  `json:"status" validate:"required,casestatus"`
	Note        string  `json:"note" validate:"max=2000"`
}

type ChangeStatusRequest struct {
	Status             string  `json:"status" validate:"required"`
	Note               string  `json:"note" validate:"max=2000"`
	PaymentAmountCents *int64  `json:"payment_amount_cents" validate:"omitempty,gt=0"`
	PaymentMethod      *string `json:"payment_method" validate:"omitempty,max=40"`
}

type ReopenRequest struct {
	Phase  int    `json:"phase" validate:"required,min=1,max=4"`
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

type NoteRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type CaseListItem struct {
	ID               string            `json:"id"`
	ClientID         *string           `json:"client_id,omitempty"`
	ServiceType      string            `json:"service_type"`
	Package          string            `json:"package"`
	Phase            models.Phase      `json:"phase"`
	Status           models.CaseStatus `json:"status"`
	Archived         bool              `json:"archived"`
	DaysUntilArchive *int              `json:"days_until_archive,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// CaseDetail is a case with every relation and its archive countdown.
type CaseDetail struct {
	*models.Case
	DaysUntilArchive *int `json:"days_until_archive,omitempty"`
}

type ArchiveInfo struct {
	CaseID           string     `json:"case_id"`
	Scheduled        bool       `json:"scheduled"`
	DaysUntilArchive *int       `json:"days_until_archive,omitempty"`
	ArchiveAfter     *time.Time `json:"archive_after,omitempty"`
	Archived         bool       `json:"archived"`
}

type Handler struct {
	eng *lifecycle.Engine
	now func() time.Time
}

func NewHandler(eng *lifecycle.Engine) *Handler {
	return &Handler{eng: eng, now: time.Now}
}

func (h *Handler) countdown(c *models.Case) *int {
	if days, ok := lifecycle.DaysUntilArchive(c, h.now()); ok {
		return &days
	}
	return nil
}

// Create Case godoc
// @Summary      Create case
// @Description  Operator opens a case at any phase/status
// @Tags         cases
// @Security     BearerAuth
// @Router       /cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	// Validation (Laravel-style response)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.eng.CreateCase(c.UserContext(), lifecycle.CreateCaseInput{
		ClientID:    in.ClientID,
		LeadID:      in.LeadID,
		ServiceType: in.ServiceType,
		Package:     in.Package,
		Phase:       models.Phase(in.Phase),
		Status:      models.CaseStatus(in.Status),
		Note:        strings.TrimSpace(in.Note),
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(cs)
}

// List Cases godoc
// @Summary      List cases
// @Description  Filter by phase, status, client and archived flag (paginated, newest first)
// @Tags         cases
// @Security     BearerAuth
// @Param        phase     query int    false "1..4"
// @Param        status    query string false "status"
// @Param        client_id query string false "client id"
// @Param        archived  query bool   false "archived"
// @Router       /cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	page, size := httperr.ParsePage(c)
	f := store.CaseFilter{Page: page, PageSize: size}

	if raw := c.Query("phase"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !models.Phase(n).Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "phase must be 1..4")
		}
		p := models.Phase(n)
		f.Phase = &p
	}
	if raw := c.Query("status"); raw != "" {
		s, ok := models.ParseStatus(raw)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown status")
		}
		f.Status = &s
	}
	if raw := strings.TrimSpace(c.Query("client_id")); raw != "" {
		f.ClientID = &raw
	}
	if raw := c.Query("archived"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "archived must be true or false")
		}
		f.Archived = &b
	}

	list, total, err := h.eng.ListCases(c.UserContext(), f)
	if err != nil {
		return httperr.From(err)
	}
	items := make([]CaseListItem, 0, len(list))
	for i := range list {
		cs := &list[i]
		items = append(items, CaseListItem{
			ID:               cs.ID,
			ClientID:         cs.ClientID,
			ServiceType:      cs.ServiceType,
			Package:          cs.Package,
			Phase:            cs.Phase,
			Status:           cs.Status,
			Archived:         cs.Archived,
			DaysUntilArchive: h.countdown(cs),
			CreatedAt:        cs.CreatedAt,
		})
	}
	return c.JSON(httperr.NewPage(items, total, page, size))
}

// Case detail godoc
// @Summary      Case detail
// @Description  Case with timeline (oldest first), documents, notes and document requests
// @Tags         cases
// @Security     BearerAuth
// @Param        id   path string true "case id"
// @Router       /cases/{id} [get]
func (h *Handler) GetDetail(c *fiber.Ctx) error {
	cs, err := h.eng.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.From(err)
	}

	// Normalisation: never send null lists
	if cs.Timeline == nil {
		cs.Timeline = []models.TimelineEvent{}
	}
	if cs.Documents == nil {
		cs.Documents = []models.Document{}
	}
	if cs.Notes == nil {
		cs.Notes = []models.Note{}
	}
	if cs.DocumentRequests == nil {
		cs.DocumentRequests = []models.DocumentRequest{}
	}
	return c.JSON(CaseDetail{Case: cs, DaysUntilArchive: h.countdown(cs)})
}

// Change Status godoc
// @Summary      Change status
// @Description  Moves the case to any status; phase follows. payment_received issues portal credentials once, completed schedules archival.
// @Tags         cases
// @Security     BearerAuth
// @Param        id       path string              true "case id"
// @Param        payload  body ChangeStatusRequest true "target"
// @Router       /cases/{id}/status [post]
func (h *Handler) ChangeStatus(c *fiber.Ctx) error {
	var in ChangeStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.eng.ChangeStatus(c.UserContext(), lifecycle.ChangeStatusInput{
		CaseID:             c.Params("id"),
		Status:             models.CaseStatus(strings.TrimSpace(in.Status)),
		Note:               strings.TrimSpace(in.Note),
		PaymentAmountCents: in.PaymentAmountCents,
		PaymentMethod:      in.PaymentMethod,
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(cs)
}

// Reopen godoc
// @Summary      Reopen case
// @Description  Returns a completed or archived case to the given phase/status
// @Tags         cases
// @Security     BearerAuth
// @Param        id       path string        true "case id"
// @Param        payload  body ReopenRequest true "target"
// @Router       /cases/{id}/reopen [post]
func (h *Handler) Reopen(c *fiber.Ctx) error {
	var in ReopenRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.eng.Reopen(c.UserContext(), lifecycle.ReopenInput{
		CaseID: c.Params("id"),
		Phase:  models.Phase(in.Phase),
		Status: models.CaseStatus(strings.TrimSpace(in.Status)),
		Note:   strings.TrimSpace(in.Note),
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(cs)
}

// AddNote godoc
// @Summary      Add case note
// @Tags         cases
// @Security     BearerAuth
// @Router       /cases/{id}/notes [post]
func (h *Handler) AddNote(c *fiber.Ctx) error {
	var in NoteRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	n, err := h.eng.AddCaseNote(c.UserContext(), c.Params("id"), in.Body, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// Archive info godoc
// @Summary      Archive countdown
// @Description  Days until the case is archived; 0 once due
// @Tags         cases
// @Security     BearerAuth
// @Router       /cases/{id}/archive [get]
func (h *Handler) ArchiveInfo(c *fiber.Ctx) error {
	cs, err := h.eng.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.From(err)
	}
	days := h.countdown(cs)
	return c.JSON(ArchiveInfo{
		CaseID:           cs.ID,
		Scheduled:        days != nil,
		DaysUntilArchive: days,
		ArchiveAfter:     cs.ArchiveAfter,
		Archived:         cs.Archived,
	})
}

// Sweep godoc
// @Summary      Run the archival sweep now
// @Tags         archive
// @Security     BearerAuth
// @Router       /archive/sweep [post]
func (h *Handler) Sweep(c *fiber.Ctx) error {
	n, err := h.eng.EnforceArchival(c.UserContext())
	if err != nil && n == 0 {
		return httperr.From(err)
	}
	return c.JSON(fiber.Map{"archived": n, "partial": err != nil})
}
