package operator

import (
	"github.com/google/uuid"

	"github.com/mvalverde/go-custody/internal/domain"
)

type LoginSchema struct {
	Secret string `json:"secret" validate:"required"`
}

type LoginResponseSchema struct {
	Token string `json:"token"`
}

type ResolveSchema struct {
	Kind     domain.ClaimKind `json:"kind" validate:"required,oneof=DEPOSIT SETTLEMENT LOAN TAX_REFUND VERIFICATION"`
	RecordId uuid.UUID        `json:"record_id" validate:"required"`
	Decision domain.Decision  `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
}

type RevealKeysSchema struct {
	Email string `json:"email" validate:"required,email"`
}

type RevealKeysResponseSchema struct {
	Email string                  `json:"email"`
	Keys  map[domain.Chain]string `json:"keys"`
}
