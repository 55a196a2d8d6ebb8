package streams

import "errors"

var (
	// ErrNoActiveStream is returned when an operation targets a builder
	// whose stream cap is zero (no stream was ever created, or the record
	// is the zero record).
	ErrNoActiveStream = errors.New("streams: no active stream")
	// ErrNotEnoughFundsInStream is returned when a withdrawal requests more
	// than the currently unlocked entitlement.
	ErrNotEnoughFundsInStream = errors.New("streams: amount exceeds unlocked entitlement")
	// ErrNotEnoughFundsInContract is returned when a withdrawal requests
	// more than the ledger's held balance of the stream asset. Holdings are
	// shared across all builders of that asset, so this is distinct from an
	// entitlement shortfall.
	ErrNotEnoughFundsInContract = errors.New("streams: amount exceeds held balance")
	// ErrTransferFailed is returned when the transfer gateway reports a
	// failed delivery, including non-reverting false returns.
	ErrTransferFailed = errors.New("streams: transfer failed")
	// ErrInvalidArrayInput is returned when batch argument lengths disagree.
	ErrInvalidArrayInput = errors.New("streams: batch array lengths disagree")
	// ErrUnauthorized is returned when a non-owner invokes an owner-gated
	// operation.
	ErrUnauthorized = errors.New("streams: caller is not the owner")
	// ErrStreamExists is returned by the create-if-absent path when the
	// builder already has an active stream.
	ErrStreamExists = errors.New("streams: stream already exists")
	// ErrInvalidAmount is returned for nil, zero, or negative caps and
	// withdrawal amounts.
	ErrInvalidAmount = errors.New("streams: amount must be positive")
	// ErrInvalidOwner is returned when ownership would be handed to the
	// zero address outside the renounce path.
	ErrInvalidOwner = errors.New("streams: new owner must not be the zero address")

	errNilState   = errors.New("streams: state not configured")
	errNilGateway = errors.New("streams: transfer gateway not configured")
	errNilOwners  = errors.New("streams: ownership not configured")
)
