package leads

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/httperr"
	"github.com/brasil-legalize/case-engine/pkg/models"
	"github.com/brasil-legalize/case-engine/pkg/sanitize"
	"github.com/brasil-legalize/case-engine/pkg/validation"
)

type Handler struct {
	eng *lifecycle.Engine
}

func NewHandler(eng *lifecycle.Engine) *Handler { return &Handler{eng: eng} }

type CreateLeadRequest struct {
	Name              string `json:"name" validate:"required,min=2,max=120"`
	Email             string `json:"email" validate:"omitempty,email,max=160"`
	Phone             string `json:"phone" validate:"omitempty,max=40"`
	Country           string `json:"country" validate:"omitempty,country"`
	ServiceType       string `json:"service_type" validate:"required,max=80"`
	EligibilityResult string `json:"eligibility_result" validate:"max=4000"`
	Message           string `json:"message" validate:"max=4000"`
}

type ConvertLeadRequest struct {
	ClientID    *string `json:"client_id" validate:"omitempty,uuid"`
	ServiceType string  `json:"service_type" validate:"max=80"`
	Package     string  `json:"package" validate:"max=80"`
	Phase       int     `json:"phase" validate:"omitempty,min=1,max=4"`
	Status      string  `json:"status" validate:"omitempty,casestatus"`
	Note        string  `json:"note" validate:"max=2000"`
}

type LeadListItem struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ServiceType     string            `json:"service_type"`
	Country         string            `json:"country"`
	Status          models.LeadStatus `json:"status"`
	Preview         string            `json:"preview"`
	ConvertedCaseID *string           `json:"converted_case_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ===================================
// POST /api/leads (public intake)
// ===================================

func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateLeadRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	l, err := h.eng.CreateLead(c.UserContext(), lifecycle.LeadInput{
		Name:              in.Name,
		Email:             in.Email,
		Phone:             in.Phone,
		Country:           in.Country,
		ServiceType:       in.ServiceType,
		EligibilityResult: in.EligibilityResult,
		Message:           in.Message,
	})
	if err != nil {
		return httperr.From(err)
	}
	// The submitter only learns the reference
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": l.ID, "status": l.Status})
}

// ===================================
// GET /api/leads?status=new (operator)
// ===================================

func (h *Handler) List(c *fiber.Ctx) error {
	page, size := httperr.ParsePage(c)
	f := store.LeadFilter{Page: page, PageSize: size}
	if raw := c.Query("status"); raw != "" {
		st := models.LeadStatus(raw)
		if st != models.LeadNew && st != models.LeadConverted {
			return fiber.NewError(fiber.StatusBadRequest, "status must be new or converted")
		}
		f.Status = &st
	}

	list, total, err := h.eng.ListLeads(c.UserContext(), f)
	if err != nil {
		return httperr.From(err)
	}
	items := make([]LeadListItem, 0, len(list))
	for _, l := range list {
		items = append(items, LeadListItem{
			ID:              l.ID,
			Name:            l.Name,
			ServiceType:     l.ServiceType,
			Country:         l.Country,
			Status:          l.Status,
			Preview:         sanitize.Summary(sanitize.RedactPII(l.Message), 160),
			ConvertedCaseID: l.ConvertedCaseID,
			CreatedAt:       l.CreatedAt,
		})
	}
	return c.JSON(httperr.NewPage(items, total, page, size))
}

// ===================================
// GET /api/leads/:id (operator)
// ===================================

func (h *Handler) Get(c *fiber.Ctx) error {
	l, err := h.eng.GetLead(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(l)
}

// ===================================
// POST /api/leads/:id/convert (operator)
// ===================================

func (h *Handler) Convert(c *fiber.Ctx) error {
	var in ConvertLeadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid json")
		}
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.eng.ConvertLead(c.UserContext(), c.Params("id"), lifecycle.ConvertLeadInput{
		ClientID:    in.ClientID,
		ServiceType: strings.TrimSpace(in.ServiceType),
		Package:     strings.TrimSpace(in.Package),
		Phase:       models.Phase(in.Phase),
		Status:      models.CaseStatus(in.Status),
		Note:        strings.TrimSpace(in.Note),
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(cs)
}
