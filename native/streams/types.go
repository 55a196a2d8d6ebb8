package streams

import (
	"encoding/hex"
	"math/big"
)

// Asset identifies the currency a stream pays out in. The zero value denotes
// the chain's native currency; any other value is the 20-byte address of the
// fungible token contract the stream settles in.
type Asset [20]byte

// NativeAsset is the sentinel for streams paying out in the native currency.
var NativeAsset Asset

// IsNative reports whether the asset is the native currency sentinel.
func (a Asset) IsNative() bool { return a == NativeAsset }

// Token returns the token contract address backing the asset. Meaningless for
// the native sentinel.
func (a Asset) Token() [20]byte { return [20]byte(a) }

// String renders the asset for events and RPC responses.
func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return "0x" + hex.EncodeToString(a[:])
}

// Stream is the per-builder vesting record. A builder holds at most one
// stream at a time; Cap of zero means no active stream exists.
type Stream struct {
	Builder [20]byte `json:"builder"`
	Cap     *big.Int `json:"cap"`
	Last    int64    `json:"last"`
	Asset   Asset    `json:"asset"`
}

// Active reports whether the record describes a live stream.
func (s *Stream) Active() bool {
	return s != nil && s.Cap != nil && s.Cap.Sign() > 0
}

// Clone returns a deep copy of the stream record.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Cap != nil {
		clone.Cap = new(big.Int).Set(s.Cap)
	}
	return &clone
}

// zeroStream is the record reported for builders without a stream.
func zeroStream(builder [20]byte) *Stream {
	return &Stream{Builder: builder, Cap: big.NewInt(0)}
}

// Withdrawal is the receipt produced by a successful withdrawal.
type Withdrawal struct {
	ID        string   `json:"id"`
	Builder   [20]byte `json:"builder"`
	Amount    *big.Int `json:"amount"`
	Asset     Asset    `json:"asset"`
	Memo      string   `json:"memo"`
	Timestamp int64    `json:"timestamp"`
}
