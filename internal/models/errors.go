package models

import "errors"

// Campaign lifecycle and accounting errors. Callers match with errors.Is.
var (
	ErrNotFound              = errors.New("campaign not found")
	ErrInvalidDeadline       = errors.New("deadline must be in the future")
	ErrInvalidTokenOrdering  = errors.New("token indices do not match venue ordering")
	ErrInvalidTerms          = errors.New("invalid campaign terms")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidPledger        = errors.New("missing pledger")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrExpired               = errors.New("campaign expired")
	ErrNotExecuted           = errors.New("campaign pending execution")
	ErrAlreadyExecuted       = errors.New("campaign already executed")
	ErrCampaignActive        = errors.New("campaign active")
	ErrNoStake               = errors.New("empty stake")
	ErrEmptyPool             = errors.New("nothing pledged")
	ErrBelowMinimum          = errors.New("swap output below minimum")
	ErrInsufficientLiquidity = errors.New("insufficient venue liquidity")
	ErrPriceLimit            = errors.New("swap price beyond limit")
	ErrOverflow              = errors.New("amount overflow")
	ErrReentrant             = errors.New("reentrant call")
)

// IsValidationError reports whether err was caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDeadline) ||
		errors.Is(err, ErrInvalidTokenOrdering) ||
		errors.Is(err, ErrInvalidTerms) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPledger) ||
		errors.Is(err, ErrOverflow)
}

// IsStateError reports whether err rejects an operation the campaign state does not allow
func IsStateError(err error) bool {
	return errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrNotExecuted) ||
		errors.Is(err, ErrAlreadyExecuted) ||
		errors.Is(err, ErrCampaignActive) ||
		errors.Is(err, ErrNoStake) ||
		errors.Is(err, ErrEmptyPool) ||
		errors.Is(err, ErrReentrant)
}

// IsSettlementError reports whether a collaborator (ledger or venue) refused the operation
func IsSettlementError(err error) bool {
	return errors.Is(err, ErrTransferFailed) ||
		errors.Is(err, ErrBelowMinimum) ||
		errors.Is(err, ErrInsufficientLiquidity) ||
		errors.Is(err, ErrPriceLimit)
}
