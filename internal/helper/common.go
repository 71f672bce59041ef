package helper

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/domain"
)

type Pagination[T any] struct {
	Page  int  `json:"page"`
	Size  int  `json:"size"`
	Total *int `json:"total"`
	Items []T  `json:"items"`
}

func GetPagination[T any](c fiber.Ctx) Pagination[T] {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	size, _ := strconv.Atoi(c.Query("size", "50"))
	if size < 1 {
		size = 1
	} else if size > 100 {
		size = 100
	}

	return Pagination[T]{
		Page:  page,
		Size:  size,
		Total: nil,
		Items: []T{},
	}
}

func (p Pagination[T]) Offset() int {
	return (p.Page - 1) * p.Size
}

var validate = validator.New()

func ValidateInput(input interface{}) error {
	return validate.Struct(input)
}

// WriteError maps a domain error to its HTTP status and a uniform body.
func WriteError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAuthorization),
		errors.Is(err, domain.ErrInvalidCredential),
		errors.Is(err, domain.ErrInvalidCode):
		status = fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrDuplicateEmail):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
