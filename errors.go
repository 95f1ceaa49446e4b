package nameseed

import (
	"errors"
)

var (
	ErrNotExist = errors.New("not_exist_record")
	ErrNotFound = errors.New("not_found")

	// commit-reveal timing
	ErrCommitmentTooNew    = errors.New("commitment_too_new")
	ErrCommitmentTooOld    = errors.New("commitment_too_old")
	ErrUnexpiredCommitment = errors.New("unexpired_commitment_exists")

	// intent validation
	ErrNameNotAvailable = errors.New("name_not_available")
	ErrDurationTooShort = errors.New("duration_too_short")
	ErrResolverRequired = errors.New("resolver_required_when_data_supplied")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidSecret    = errors.New("invalid_secret")

	// payment
	ErrInvalidValue        = errors.New("invalid_value")
	ErrInsufficientValue   = errors.New("insufficient_value")
	ErrInsufficientBalance = errors.New("insufficient_balance")

	// authorization
	ErrUnauthorised = errors.New("unauthorised")

	// constructor configuration
	ErrMaxCommitmentAgeTooLow  = errors.New("max_commitment_age_too_low")
	ErrMaxCommitmentAgeTooHigh = errors.New("max_commitment_age_too_high")
)
