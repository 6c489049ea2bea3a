package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/brasil-legalize/case-engine/internal/store"
	"github.com/brasil-legalize/case-engine/pkg/models"
	"github.com/brasil-legalize/case-engine/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for POST /operators
type CreateOperatorRequest struct {
	Role     string `json:"role" validate:"required,oneof=admin staff"`
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Request body for /login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Profile response for /me
type OperatorProfileResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

/* ============================== Handler ================================= */

type Handler struct {
	store store.Store
	jwt   *JWT
}

func NewHandler(st store.Store, j *JWT) *Handler { return &Handler{store: st, jwt: j} }

/* =========================== Create operator ============================ */

// CreateOperator registers a back-office operator. Admin only.
func (h *Handler) CreateOperator(c *fiber.Ctx) error {
	var in CreateOperatorRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	// Normalize email
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	// Validate request (Laravel-like error shape)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	o, err := newOperator(in.Email, in.Password, in.Name, models.Role(in.Role))
	if err != nil {
		return fiber.ErrInternalServerError
	}
	err = h.store.Tx(c.UserContext(), func(r store.Repo) error {
		return r.InsertOperator(c.UserContext(), o)
	})
	if errors.Is(err, store.ErrConflict) {
		return fiber.NewError(fiber.StatusConflict, "email already exists")
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(OperatorProfileResponse{
		ID: o.ID, Email: o.Email, Role: o.Role, Name: o.Name, CreatedAt: o.CreatedAt,
	})
}

/* ================================ Login ================================= */

// Login authenticates an operator and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	// Normalize email
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	// Validate request
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	// Find operator by email
	var o *models.Operator
	err := h.store.View(c.UserContext(), func(r store.Repo) error {
		var err error
		o, err = r.FindOperatorByEmail(c.UserContext(), in.Email)
		return err
	})
	if err != nil {
		return fiber.ErrUnauthorized
	}

	// Verify password
	if bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(in.Password)) != nil {
		return fiber.ErrUnauthorized
	}

	token, err := h.jwt.Issue(o.ID, o.Role)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(AuthResponse{Token: token, Role: string(o.Role)})
}

/* ================================= Me =================================== */

// Me returns the profile of the authenticated operator.
func (h *Handler) Me(c *fiber.Ctx) error {
	id := MustOperatorID(c)

	var o *models.Operator
	err := h.store.View(c.UserContext(), func(r store.Repo) error {
		var err error
		o, err = r.GetOperator(c.UserContext(), id)
		return err
	})
	if err != nil {
		return fiber.ErrUnauthorized
	}

	return c.JSON(OperatorProfileResponse{
		ID:        o.ID,
		Email:     o.Email,
		Role:      o.Role,
		Name:      o.Name,
		CreatedAt: o.CreatedAt,
	})
}

/* ================================ Seeding =============================== */

// EnsureAdmin creates the first admin when no operator exists yet.
// It reports whether an operator was created.
func EnsureAdmin(ctx context.Context, st store.Store, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	o, err := newOperator(email, password, "Administrator", models.RoleAdmin)
	if err != nil {
		return false, err
	}
	created := false
	err = st.Tx(ctx, func(r store.Repo) error {
		n, err := r.CountOperators(ctx)
		if err != nil || n > 0 {
			return err
		}
		if err := r.InsertOperator(ctx, o); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func newOperator(email, password, name string, role models.Role) (*models.Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &models.Operator{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Name:         strings.TrimSpace(name),
		CreatedAt:    time.Now().UTC(),
	}, nil
}
