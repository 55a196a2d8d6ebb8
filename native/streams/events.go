package streams

import (
	"encoding/hex"

	"paystream/core/events"
	"paystream/core/types"
)

const (
	// EventTypeStreamCreated is emitted when the owner creates or replaces a
	// builder's stream.
	EventTypeStreamCreated = "streams.created"
	// EventTypeStreamCapUpdated is emitted when the owner changes the cap of
	// an existing stream.
	EventTypeStreamCapUpdated = "streams.capUpdated"
	// EventTypeWithdrawn is emitted after a successful withdrawal.
	EventTypeWithdrawn = "streams.withdrawn"
	// EventTypeOwnershipTransferred is emitted when the owner hands control
	// to a new address.
	EventTypeOwnershipTransferred = "streams.ownership.transferred"
	// EventTypeOwnershipRenounced is emitted when the owner permanently
	// disables all owner-gated operations.
	EventTypeOwnershipRenounced = "streams.ownership.renounced"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// StreamCreatedEvent returns the payload announcing a created or replaced stream.
func StreamCreatedEvent(builder string, cap string, asset string) *types.Event {
	return &types.Event{
		Type: EventTypeStreamCreated,
		Attributes: map[string]string{
			"builder": builder,
			"cap":     cap,
			"asset":   asset,
		},
	}
}

// StreamCapUpdatedEvent returns the payload announcing a cap change.
func StreamCapUpdatedEvent(builder string, newCap string) *types.Event {
	return &types.Event{
		Type: EventTypeStreamCapUpdated,
		Attributes: map[string]string{
			"builder": builder,
			"newCap":  newCap,
		},
	}
}

// WithdrawnEvent returns the payload recording a settled withdrawal.
func WithdrawnEvent(builder string, amount string, asset string, memo string) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"builder": builder,
			"amount":  amount,
			"asset":   asset,
			"memo":    memo,
		},
	}
}

// OwnershipTransferredEvent returns the payload for an ownership handover.
func OwnershipTransferredEvent(previous string, next string) *types.Event {
	return &types.Event{
		Type: EventTypeOwnershipTransferred,
		Attributes: map[string]string{
			"previousOwner": previous,
			"newOwner":      next,
		},
	}
}

// OwnershipRenouncedEvent returns the payload for a permanent renounce.
func OwnershipRenouncedEvent(previous string) *types.Event {
	return &types.Event{
		Type: EventTypeOwnershipRenounced,
		Attributes: map[string]string{
			"previousOwner": previous,
		},
	}
}
