// Package httperr translates engine errors into fiber errors and holds the paging
// helpers shared by the list endpoints.
package httperr

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/brasil-legalize/case-engine/internal/lifecycle"
	"github.com/brasil-legalize/case-engine/pkg/models"
)

// From maps an engine error to a *fiber.Error. Unknown errors become a bare 500 so
// internals never reach the client; the request logger still records them.
func From(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidStatus),
		errors.Is(err, lifecycle.ErrInvalidTarget),
		errors.Is(err, lifecycle.ErrMissingReason),
		errors.Is(err, lifecycle.ErrEmptyRequest),
		errors.Is(err, lifecycle.ErrInvalidInput):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidState),
		errors.Is(err, lifecycle.ErrAlreadyConverted),
		errors.Is(err, lifecycle.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return fiber.ErrInternalServerError
}

// ParsePage reads ?page and ?pageSize. Defaults 1 and 10, at most 50 per page.
func ParsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

// NewPage wraps items in the list envelope. Items is never null.
func NewPage[T any](items []T, total int64, page, size int) models.Page[T] {
	if items == nil {
		items = []T{}
	}
	return models.Page[T]{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    items,
	}
}
