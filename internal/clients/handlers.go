package clients

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/auth"
	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/pkg/httperr"
	"github.com/brasil-legalize/case-engine/pkg/models"
	"github.com/brasil-legalize/case-engine/pkg/validation"
)

type Handler struct {
	eng *lifecycle.Engine
}

func NewHandler(eng *lifecycle.Engine) *Handler { return &Handler{eng: eng} }

type createReq struct {
	Name          string `json:"name" validate:"required,min=2,max=120"`
	Email         string `json:"email" validate:"omitempty,email,max=160"`
	Phone         string `json:"phone" validate:"omitempty,max=40"`
	Country       string `json:"country" validate:"omitempty,country"`
	TotalDueCents int64  `json:"total_due_cents" validate:"gte=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type noteReq struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type communicationReq struct {
	Channel string `json:"channel" validate:"required,oneof=email whatsapp phone meeting"`
	Summary string `json:"summary" validate:"max=4000"`
}

type paymentReq struct {
	CaseID      *string `json:"case_id" validate:"omitempty,max=32"`
	AmountCents int64   `json:"amount_cents" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Method      string  `json:"method" validate:"max=40"`
}

// =====================================
// POST /api/clients (operator)
// =====================================

func (h *Handler) Create(c *fiber.Ctx) error {
	var in createReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cl, err := h.eng.CreateClient(c.UserContext(), lifecycle.ClientInput{
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Country:       in.Country,
		TotalDueCents: in.TotalDueCents,
		Currency:      in.Currency,
	})
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(cl)
}

// =====================================
// GET /api/clients/:id (operator)
// =====================================

func (h *Handler) Get(c *fiber.Ctx) error {
	cl, err := h.eng.GetClient(c.UserContext(), c.Params("id"))
	if err != nil {
		return httperr.From(err)
	}
	if cl.Payments == nil {
		cl.Payments = []models.Payment{}
	}
	if cl.Notes == nil {
		cl.Notes = []models.Note{}
	}
	if cl.Communications == nil {
		cl.Communications = []models.Communication{}
	}
	if cl.Cases == nil {
		cl.Cases = []models.CaseRef{}
	}
	return c.JSON(cl)
}

// =====================================
// POST /api/clients/:id/notes (operator)
// =====================================

func (h *Handler) AddNote(c *fiber.Ctx) error {
	var in noteReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	n, err := h.eng.AddClientNote(c.UserContext(), c.Params("id"), in.Body, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// =====================================
// POST /api/clients/:id/communications (operator)
// =====================================

func (h *Handler) LogCommunication(c *fiber.Ctx) error {
	var in communicationReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	cm, err := h.eng.LogCommunication(c.UserContext(), c.Params("id"), models.Channel(in.Channel), in.Summary,
		auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}

// =====================================
// POST /api/clients/:id/payments (operator)
// Books a ledger entry; paid goes up, due goes down.
// =====================================

func (h *Handler) RecordPayment(c *fiber.Ctx) error {
	var in paymentReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	if in.CaseID != nil && strings.TrimSpace(*in.CaseID) == "" {
		in.CaseID = nil
	}

	p, err := h.eng.RecordPayment(c.UserContext(), c.Params("id"), lifecycle.PaymentInput{
		CaseID:      in.CaseID,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Method:      in.Method,
	}, auth.MustOperatorID(c))
	if err != nil {
		return httperr.From(err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}
