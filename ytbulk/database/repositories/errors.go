package repositories

import "errors"

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// Allocation preconditions.
	ErrActiveClaim          = errors.New("user already has an active claim")
	ErrAlreadyParticipated  = errors.New("user already participated in this work")
	ErrSoldOut              = errors.New("work is sold out")
	ErrOutOfInventory       = errors.New("no available metadata items in this batch")
	ErrInsufficientCapacity = errors.New("requested slots exceed remaining batch capacity")

	// State machine violations.
	ErrInvalidTransition = errors.New("invalid claim transition")
	ErrAlreadyProcessed  = errors.New("request already processed")

	// Wallet preconditions.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")

	ErrDuplicateBatch = errors.New("batch name already exists")
)
