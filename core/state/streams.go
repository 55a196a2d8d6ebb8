package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"paystream/native/streams"
	"paystream/storage"
)

func streamStorageKey(builder [20]byte) []byte {
	buf := make([]byte, len(streamRecordPrefix)+len(builder))
	copy(buf, streamRecordPrefix)
	copy(buf[len(streamRecordPrefix):], builder[:])
	return ethcrypto.Keccak256(buf)
}

type storedStream struct {
	Builder [20]byte
	Cap     *big.Int
	Last    *big.Int
	Asset   [20]byte
}

func newStoredStream(s *streams.Stream) (*storedStream, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil stream record")
	}
	if s.Last < 0 {
		return nil, fmt.Errorf("state: stream checkpoint before epoch")
	}
	cap := big.NewInt(0)
	if s.Cap != nil {
		cap = new(big.Int).Set(s.Cap)
	}
	return &storedStream{
		Builder: s.Builder,
		Cap:     cap,
		Last:    big.NewInt(s.Last),
		Asset:   s.Asset,
	}, nil
}

func (s *storedStream) toStream() (*streams.Stream, error) {
	if s == nil {
		return nil, fmt.Errorf("state: nil storage record")
	}
	out := &streams.Stream{
		Builder: s.Builder,
		Cap:     big.NewInt(0),
		Asset:   streams.Asset(s.Asset),
	}
	if s.Cap != nil {
		out.Cap = new(big.Int).Set(s.Cap)
	}
	if s.Last != nil {
		if !s.Last.IsInt64() {
			return nil, fmt.Errorf("state: stream checkpoint out of range")
		}
		out.Last = s.Last.Int64()
	}
	return out, nil
}

// StreamGet loads the builder's stream record.
func (m *Manager) StreamGet(builder [20]byte) (*streams.Stream, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, errNilDatabase
	}
	raw, err := m.db.Get(streamStorageKey(builder))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stored := new(storedStream)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode stream record: %w", err)
	}
	stream, err := stored.toStream()
	if err != nil {
		return nil, false, err
	}
	return stream, true, nil
}

// StreamPut persists the builder's stream record, replacing any prior record
// for the same builder.
func (m *Manager) StreamPut(stream *streams.Stream) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	stored, err := newStoredStream(stream)
	if err != nil {
		return err
	}
	raw, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.db.Put(streamStorageKey(stream.Builder), raw)
}
