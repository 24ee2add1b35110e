package shop

import (
	"errors"
	"fmt"
)

var (
	ErrCartNotFound        = errors.New("cart not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrLineNotFound        = errors.New("product not found in cart")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrUserNotFound        = errors.New("user not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrMatriculaTaken      = errors.New("matricula already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrValidation          = errors.New("validation failed")

	// ErrStorage matches every StorageError via errors.Is.
	ErrStorage = errors.New("storage failure")
)

// ErrProductNotFound matches every ProductNotFoundError via errors.Is.
var ErrProductNotFound = errors.New("product not found")

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// ErrInsufficientStock matches every InsufficientStockError via errors.Is.
var ErrInsufficientStock = errors.New("insufficient stock")

type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StorageError wraps a failure of the underlying store, including failed commits.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
