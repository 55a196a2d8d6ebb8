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

var (
	streamRecordPrefix   = []byte("streams/record/")
	streamOwnerKeyBytes  = []byte("streams/owner")
	vaultBalancePrefix   = []byte("vault/balance/")
	accountBalancePrefix = []byte("account/balance/")
)

var errNilDatabase = errors.New("state: database not configured")

// Manager persists the stream registry, the owner scalar, and asset balances
// over a key-value database. It backs the stream engine's state interface,
// the ownership capability, and the transfer gateway: the vault entries are
// the ledger's own holdings per asset, shared across all builders of that
// asset.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	buf := make([]byte, 0, len(prefix)+20*len(parts))
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func vaultBalanceKey(asset streams.Asset) []byte {
	return prefixedKey(vaultBalancePrefix, asset[:])
}

func accountBalanceKey(asset streams.Asset, addr [20]byte) []byte {
	return prefixedKey(accountBalancePrefix, asset[:], addr[:])
}

func (m *Manager) loadBigInt(key []byte) (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, errNilDatabase
	}
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	value := new(big.Int)
	if err := rlp.DecodeBytes(raw, value); err != nil {
		return nil, fmt.Errorf("state: decode big int: %w", err)
	}
	return value, nil
}

func (m *Manager) writeBigInt(key []byte, value *big.Int) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("state: negative balance write")
	}
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

// OwnerGet returns the persisted owner scalar.
func (m *Manager) OwnerGet() ([20]byte, bool, error) {
	if m == nil || m.db == nil {
		return [20]byte{}, false, errNilDatabase
	}
	raw, err := m.db.Get(ethcrypto.Keccak256(streamOwnerKeyBytes))
	if errors.Is(err, storage.ErrNotFound) {
		return [20]byte{}, false, nil
	}
	if err != nil {
		return [20]byte{}, false, err
	}
	if len(raw) != 20 {
		return [20]byte{}, false, fmt.Errorf("state: malformed owner record (%d bytes)", len(raw))
	}
	var owner [20]byte
	copy(owner[:], raw)
	return owner, true, nil
}

// OwnerPut persists the owner scalar. The zero address records a renounce.
func (m *Manager) OwnerPut(owner [20]byte) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	return m.db.Put(ethcrypto.Keccak256(streamOwnerKeyBytes), owner[:])
}

// Deposit credits the vault's holdings of an asset. This is how the ledger
// gets funded; withdrawals draw the same balance down.
func (m *Manager) Deposit(asset streams.Asset, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: deposit amount must be positive")
	}
	key := vaultBalanceKey(asset)
	held, err := m.loadBigInt(key)
	if err != nil {
		return err
	}
	return m.writeBigInt(key, new(big.Int).Add(held, amount))
}

// BalanceOf reports the vault's current holdings of an asset.
func (m *Manager) BalanceOf(asset streams.Asset) (*big.Int, error) {
	return m.loadBigInt(vaultBalanceKey(asset))
}

// AccountBalance reports the cumulative amount delivered to an account in an
// asset. Exposed for observers and tests.
func (m *Manager) AccountBalance(asset streams.Asset, addr [20]byte) (*big.Int, error) {
	return m.loadBigInt(accountBalanceKey(asset, addr))
}

func (m *Manager) transfer(asset streams.Asset, to [20]byte, amount *big.Int) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilDatabase
	}
	if amount == nil || amount.Sign() <= 0 {
		return false, fmt.Errorf("state: transfer amount must be positive")
	}
	vaultKey := vaultBalanceKey(asset)
	held, err := m.loadBigInt(vaultKey)
	if err != nil {
		return false, err
	}
	if held.Cmp(amount) < 0 {
		// Soft failure, mirroring token contracts that return false
		// instead of reverting.
		return false, nil
	}
	accountKey := accountBalanceKey(asset, to)
	balance, err := m.loadBigInt(accountKey)
	if err != nil {
		return false, err
	}
	if err := m.writeBigInt(vaultKey, new(big.Int).Sub(held, amount)); err != nil {
		return false, err
	}
	if err := m.writeBigInt(accountKey, new(big.Int).Add(balance, amount)); err != nil {
		return false, err
	}
	return true, nil
}

// TransferNative delivers native-currency funds from the vault to an account.
func (m *Manager) TransferNative(to [20]byte, amount *big.Int) (bool, error) {
	return m.transfer(streams.NativeAsset, to, amount)
}

// TransferToken delivers token funds from the vault to an account.
func (m *Manager) TransferToken(token [20]byte, to [20]byte, amount *big.Int) (bool, error) {
	return m.transfer(streams.Asset(token), to, amount)
}
