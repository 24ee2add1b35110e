package shop

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service holds the marketplace operations. Every operation runs in exactly
// one Store transaction.
type Service struct {
	Store      Store
	Now        func() time.Time
	NewID      func() string
	BcryptCost int
}

func NewService(store Store) *Service {
	return &Service{
		Store:      store,
		Now:        func() time.Time { return time.Now().UTC() },
		NewID:      uuid.NewString,
		BcryptCost: bcrypt.DefaultCost,
	}
}
