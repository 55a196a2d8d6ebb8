package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"paystream/native/streams"
	"paystream/storage"
)

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func TestStreamRoundtrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	builder := testAddr(1)

	_, ok, err := manager.StreamGet(builder)
	require.NoError(t, err)
	require.False(t, ok)

	cap, ok2 := new(big.Int).SetString("340282366920938463463374607431768211456", 10) // 2^128
	require.True(t, ok2)
	in := &streams.Stream{
		Builder: builder,
		Cap:     cap,
		Last:    1_700_000_000,
		Asset:   streams.Asset(testAddr(0xF0)),
	}
	require.NoError(t, manager.StreamPut(in))

	out, ok, err := manager.StreamGet(builder)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in.Builder, out.Builder)
	require.Zero(t, in.Cap.Cmp(out.Cap))
	require.Equal(t, in.Last, out.Last)
	require.Equal(t, in.Asset, out.Asset)

	// Replacement overwrites wholesale.
	in.Cap = big.NewInt(9)
	in.Asset = streams.NativeAsset
	require.NoError(t, manager.StreamPut(in))
	out, _, err = manager.StreamGet(builder)
	require.NoError(t, err)
	require.Zero(t, out.Cap.Cmp(big.NewInt(9)))
	require.Equal(t, streams.NativeAsset, out.Asset)
}

func TestStreamPutRejectsNegativeCheckpoint(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	err := manager.StreamPut(&streams.Stream{Builder: testAddr(1), Cap: big.NewInt(1), Last: -5})
	require.Error(t, err)
}

func TestOwnerScalarRoundtrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	_, ok, err := manager.OwnerGet()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.OwnerPut(testAddr(0xAA)))
	owner, ok, err := manager.OwnerGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testAddr(0xAA), owner)

	// A renounce persists the zero address, still marked present.
	require.NoError(t, manager.OwnerPut([20]byte{}))
	owner, ok, err = manager.OwnerGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [20]byte{}, owner)
}

func TestVaultTransfers(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	recipient := testAddr(2)
	token := testAddr(0xF0)

	// Empty vault: soft failure, no state change.
	delivered, err := manager.TransferNative(recipient, big.NewInt(100))
	require.NoError(t, err)
	require.False(t, delivered)

	require.NoError(t, manager.Deposit(streams.NativeAsset, big.NewInt(150)))
	held, err := manager.BalanceOf(streams.NativeAsset)
	require.NoError(t, err)
	require.Zero(t, held.Cmp(big.NewInt(150)))

	delivered, err = manager.TransferNative(recipient, big.NewInt(100))
	require.NoError(t, err)
	require.True(t, delivered)

	held, err = manager.BalanceOf(streams.NativeAsset)
	require.NoError(t, err)
	require.Zero(t, held.Cmp(big.NewInt(50)))
	balance, err := manager.AccountBalance(streams.NativeAsset, recipient)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(100)))

	// Token holdings are accounted independently of native holdings.
	delivered, err = manager.TransferToken(token, recipient, big.NewInt(10))
	require.NoError(t, err)
	require.False(t, delivered)

	require.NoError(t, manager.Deposit(streams.Asset(token), big.NewInt(10)))
	delivered, err = manager.TransferToken(token, recipient, big.NewInt(10))
	require.NoError(t, err)
	require.True(t, delivered)
	balance, err = manager.AccountBalance(streams.Asset(token), recipient)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(big.NewInt(10)))
}

func TestManagerBacksEngineEndToEnd(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	engine := streams.NewEngine()
	engine.SetState(manager)
	engine.SetGateway(manager)
	owners := streams.NewOwnership(manager)
	require.NoError(t, owners.Bootstrap(testAddr(0xAA)))
	engine.SetOwnership(owners)
	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { return now })

	builder := testAddr(1)
	cap := big.NewInt(1_000_000)
	_, err := engine.CreateStream(testAddr(0xAA), builder, cap, streams.NativeAsset)
	require.NoError(t, err)
	require.NoError(t, manager.Deposit(streams.NativeAsset, big.NewInt(2_000_000)))

	_, err = engine.Withdraw(builder, cap, "genesis grant")
	require.NoError(t, err)

	balance, err := manager.AccountBalance(streams.NativeAsset, builder)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(cap))

	unlocked, err := engine.UnlockedOf(builder)
	require.NoError(t, err)
	require.Zero(t, unlocked.Sign())
}
