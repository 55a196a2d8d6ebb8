package streams

import (
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"paystream/core/events"
	"paystream/core/types"
)

type engineState interface {
	StreamGet(builder [20]byte) (*Stream, bool, error)
	StreamPut(stream *Stream) error
}

// TransferGateway performs the actual fund movement for withdrawals and
// reports the ledger's own holdings. Deliveries may fail softly: a false
// return without an error must be treated the same as a hard failure.
type TransferGateway interface {
	TransferNative(to [20]byte, amount *big.Int) (bool, error)
	TransferToken(token [20]byte, to [20]byte, amount *big.Int) (bool, error)
	BalanceOf(asset Asset) (*big.Int, error)
}

// Engine wires the vesting stream business logic with persistence, the
// transfer gateway, the ownership capability, and event emission.
type Engine struct {
	state   engineState
	gateway TransferGateway
	owners  *Ownership
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a stream engine with a no-op emitter and wall-clock
// time source. Callers configure state, gateway, and ownership before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGateway configures the transfer gateway used to settle withdrawals.
func (e *Engine) SetGateway(gateway TransferGateway) { e.gateway = gateway }

// SetOwnership configures the single-owner capability gating admin calls.
func (e *Engine) SetOwnership(owners *Ownership) { e.owners = owners }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Ownership exposes the configured ownership capability.
func (e *Engine) Ownership() *Ownership { return e.owners }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) requireOwner(caller [20]byte) error {
	if e == nil || e.owners == nil {
		return errNilOwners
	}
	return e.owners.RequireOwner(caller)
}

func (e *Engine) writeStream(builder [20]byte, cap *big.Int, asset Asset, now int64) (*Stream, error) {
	stream := &Stream{
		Builder: builder,
		Cap:     new(big.Int).Set(cap),
		// Backdating the checkpoint by one full period unlocks the entire
		// cap immediately. Trusted-recipient semantics: a fresh stream can
		// be drained in one withdrawal.
		Last:  now - Period,
		Asset: asset,
	}
	if err := e.state.StreamPut(stream); err != nil {
		return nil, err
	}
	e.emit(StreamCreatedEvent(hexAddr(builder), stream.Cap.String(), asset.String()))
	return stream.Clone(), nil
}

// CreateStream unconditionally writes a stream record for the builder,
// replacing cap, checkpoint, and asset wholesale when one already exists.
// Replacing an active stream strands any accrued-but-unwithdrawn entitlement;
// CreateStreamIfAbsent is the guarded alternative.
func (e *Engine) CreateStream(caller [20]byte, builder [20]byte, cap *big.Int, asset Asset) (*Stream, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if cap == nil || cap.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return e.writeStream(builder, cap, asset, e.now())
}

// CreateStreamIfAbsent writes a stream record only when the builder has no
// active stream, failing with ErrStreamExists otherwise.
func (e *Engine) CreateStreamIfAbsent(caller [20]byte, builder [20]byte, cap *big.Int, asset Asset) (*Stream, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if cap == nil || cap.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if existing, ok, err := e.state.StreamGet(builder); err != nil {
		return nil, err
	} else if ok && existing.Active() {
		return nil, ErrStreamExists
	}
	return e.writeStream(builder, cap, asset, e.now())
}

// UpdateCap overwrites the cap of an existing stream, leaving the checkpoint
// and asset untouched so accrual is not reset. Setting the cap to zero is
// disallowed; stream removal is not supported.
func (e *Engine) UpdateCap(caller [20]byte, builder [20]byte, newCap *big.Int) (*Stream, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if newCap == nil || newCap.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	stream, ok, err := e.state.StreamGet(builder)
	if err != nil {
		return nil, err
	}
	if !ok || !stream.Active() {
		return nil, ErrNoActiveStream
	}
	stream.Cap = new(big.Int).Set(newCap)
	if err := e.state.StreamPut(stream); err != nil {
		return nil, err
	}
	e.emit(StreamCapUpdatedEvent(hexAddr(builder), stream.Cap.String()))
	return stream.Clone(), nil
}

// AddBatch creates or replaces one stream per index. All three slices must
// have equal length; otherwise the call fails before any write. Duplicate
// builders within a batch are applied in order, so later entries overwrite
// earlier ones exactly like sequential CreateStream calls.
func (e *Engine) AddBatch(caller [20]byte, builders [][20]byte, caps []*big.Int, assets []Asset) ([]*Stream, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if len(builders) != len(caps) || len(builders) != len(assets) {
		return nil, ErrInvalidArrayInput
	}
	for _, cap := range caps {
		if cap == nil || cap.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
	}
	now := e.now()
	created := make([]*Stream, 0, len(builders))
	for i := range builders {
		stream, err := e.writeStream(builders[i], caps[i], assets[i], now)
		if err != nil {
			return nil, err
		}
		created = append(created, stream)
	}
	return created, nil
}

// Withdraw settles a builder-initiated withdrawal of amount from the caller's
// own stream. The entitlement check and the held-balance check are
// independent: a builder may be owed more than the ledger currently holds.
// The gateway transfer runs before the checkpoint write so a failed delivery
// leaves the record untouched.
func (e *Engine) Withdraw(caller [20]byte, amount *big.Int, memo string) (*Withdrawal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.gateway == nil {
		return nil, errNilGateway
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	stream, ok, err := e.state.StreamGet(caller)
	if err != nil {
		return nil, err
	}
	if !ok || !stream.Active() {
		return nil, ErrNoActiveStream
	}
	now := e.now()
	totalUnlocked := unlockedAt(stream.Cap, stream.Last, now)
	if amount.Cmp(totalUnlocked) > 0 {
		return nil, ErrNotEnoughFundsInStream
	}
	held, err := e.gateway.BalanceOf(stream.Asset)
	if err != nil {
		return nil, err
	}
	if held == nil || held.Cmp(amount) < 0 {
		return nil, ErrNotEnoughFundsInContract
	}
	var delivered bool
	if stream.Asset.IsNative() {
		delivered, err = e.gateway.TransferNative(caller, amount)
	} else {
		delivered, err = e.gateway.TransferToken(stream.Asset.Token(), caller, amount)
	}
	if err != nil {
		return nil, err
	}
	if !delivered {
		return nil, ErrTransferFailed
	}
	stream.Last = advanceCheckpoint(stream.Last, now, amount, totalUnlocked)
	if err := e.state.StreamPut(stream); err != nil {
		return nil, err
	}
	trimmedMemo := strings.TrimSpace(memo)
	e.emit(WithdrawnEvent(hexAddr(caller), amount.String(), stream.Asset.String(), trimmedMemo))
	return &Withdrawal{
		ID:        uuid.NewString(),
		Builder:   caller,
		Amount:    new(big.Int).Set(amount),
		Asset:     stream.Asset,
		Memo:      trimmedMemo,
		Timestamp: now,
	}, nil
}

// StreamOf returns the builder's stream record without mutating state. An
// unknown builder yields the zero record (cap 0).
func (e *Engine) StreamOf(builder [20]byte) (*Stream, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stream, ok, err := e.state.StreamGet(builder)
	if err != nil {
		return nil, err
	}
	if !ok || stream == nil {
		return zeroStream(builder), nil
	}
	return stream.Clone(), nil
}

// UnlockedOf returns the currently withdrawable entitlement for the builder.
// Builders without an active stream are entitled to zero.
func (e *Engine) UnlockedOf(builder [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	stream, ok, err := e.state.StreamGet(builder)
	if err != nil {
		return nil, err
	}
	if !ok || !stream.Active() {
		return big.NewInt(0), nil
	}
	return unlockedAt(stream.Cap, stream.Last, e.now()), nil
}

// TransferOwnership hands administration to newOwner and emits the handover
// event.
func (e *Engine) TransferOwnership(caller [20]byte, newOwner [20]byte) error {
	if e == nil || e.owners == nil {
		return errNilOwners
	}
	if err := e.owners.Transfer(caller, newOwner); err != nil {
		return err
	}
	e.emit(OwnershipTransferredEvent(hexAddr(caller), hexAddr(newOwner)))
	return nil
}

// RenounceOwnership permanently disables all owner-gated operations.
func (e *Engine) RenounceOwnership(caller [20]byte) error {
	if e == nil || e.owners == nil {
		return errNilOwners
	}
	if err := e.owners.Renounce(caller); err != nil {
		return err
	}
	e.emit(OwnershipRenouncedEvent(hexAddr(caller)))
	return nil
}
