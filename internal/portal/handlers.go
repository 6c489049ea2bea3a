// Package portal exposes the client-facing case view behind token and password.
package portal

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/pkg/httperr"
	"github.com/brasil-legalize/case-engine/pkg/validation"
)

type Handler struct {
	eng *lifecycle.Engine
}

func NewHandler(eng *lifecycle.Engine) *Handler { return &Handler{eng: eng} }

type ViewRequest struct {
	Token    string `json:"token" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=64"`
}

// View godoc
// @Summary      Client portal view
// @Description  Case status, timeline and documents for the holder of the portal credentials
// @Tags         portal
// @Param        payload  body ViewRequest true "credentials"
// @Router       /portal/view [post]
func (h *Handler) View(c *fiber.Ctx) error {
	var in ViewRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	in.Token = strings.TrimSpace(in.Token)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	view, err := h.eng.PortalView(c.UserContext(), in.Token, in.Password)
	if err != nil {
		// One answer for unknown token and wrong password
		if errors.Is(err, lifecycle.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return httperr.From(err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(view)
}
