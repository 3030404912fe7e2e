package state_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"tradevault/native/deed"
	"tradevault/native/escrow"
	"tradevault/state"
	"tradevault/storage"
)

func newManager(t *testing.T) *state.Manager {
	t.Helper()
	return state.NewManager(storage.NewMemDB())
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestTradeRoundTrip(t *testing.T) {
	manager := newManager(t)
	trade := &escrow.Trade{
		Index:     0,
		Seller:    addr(0x01),
		Buyer:     addr(0x02),
		Mediator:  addr(0x03),
		Amount:    big.NewInt(10),
		AssetID:   1,
		State:     escrow.TradeAwaitingAsset,
		CreatedAt: 1000,
	}
	require.NoError(t, manager.TradePut(trade))

	stored, ok, err := manager.TradeGet(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, trade.Seller, stored.Seller)
	require.Equal(t, trade.AssetID, stored.AssetID)
	require.Zero(t, trade.Amount.Cmp(stored.Amount))
	require.Equal(t, escrow.TradeAwaitingAsset, stored.State)

	_, ok, err = manager.TradeGet(1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTradePutRejectsInvalidRecord(t *testing.T) {
	manager := newManager(t)
	err := manager.TradePut(&escrow.Trade{State: escrow.TradeState(42)})
	require.Error(t, err)
}

func newAppendTrade() *escrow.Trade {
	return &escrow.Trade{
		Seller:   addr(0x01),
		Buyer:    addr(0x02),
		Mediator: addr(0x03),
		Amount:   big.NewInt(10),
		State:    escrow.TradeAwaitingAsset,
	}
}

func TestTradeAppendAllocatesSequentially(t *testing.T) {
	manager := newManager(t)
	for want := uint64(0); want < 5; want++ {
		trade := newAppendTrade()
		index, err := manager.TradeAppend(trade)
		require.NoError(t, err)
		require.Equal(t, want, index)
		require.Equal(t, want, trade.Index)
	}
	count, err := manager.TradeCount()
	require.NoError(t, err)
	require.Equal(t, uint64(5), count)
}

func TestTradeAppendFailureLeavesNoGap(t *testing.T) {
	manager := newManager(t)
	_, err := manager.TradeAppend(newAppendTrade())
	require.NoError(t, err)

	bad := newAppendTrade()
	bad.State = escrow.TradeState(42)
	_, err = manager.TradeAppend(bad)
	require.Error(t, err)

	count, err := manager.TradeCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count, "failed append must not advance the counter")

	index, err := manager.TradeAppend(newAppendTrade())
	require.NoError(t, err)
	require.Equal(t, uint64(1), index, "the burned index must be reissued")
}

func TestMediatorRegistry(t *testing.T) {
	manager := newManager(t)
	mediator := addr(0x03)

	exists, err := manager.MediatorExists(mediator)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, manager.MediatorPut(mediator))

	exists, err = manager.MediatorExists(mediator)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestAllowanceRoundTrip(t *testing.T) {
	manager := newManager(t)
	owner := addr(0x01)
	spender := addr(0x02)

	allowance, err := manager.TokenGetAllowance(owner, spender)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())

	require.NoError(t, manager.TokenPutAllowance(owner, spender, big.NewInt(25)))

	allowance, err = manager.TokenGetAllowance(owner, spender)
	require.NoError(t, err)
	require.Equal(t, int64(25), allowance.Int64())

	require.Error(t, manager.TokenPutAllowance(owner, spender, big.NewInt(-1)))
}

func TestDeedRoundTrip(t *testing.T) {
	manager := newManager(t)
	record := &deed.Deed{ID: 1, Owner: addr(0x01)}
	require.NoError(t, manager.DeedPut(record))

	stored, ok, err := manager.DeedGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.Owner, stored.Owner)

	_, ok, err = manager.DeedGet(2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGenesisFlag(t *testing.T) {
	manager := newManager(t)
	applied, err := manager.GenesisApplied()
	require.NoError(t, err)
	require.False(t, applied)

	require.NoError(t, manager.SetGenesisApplied())

	applied, err = manager.GenesisApplied()
	require.NoError(t, err)
	require.True(t, applied)
}

func TestPauseFlags(t *testing.T) {
	manager := newManager(t)
	require.False(t, manager.IsPaused("escrow"))
	require.NoError(t, manager.SetPaused("escrow", true))
	require.True(t, manager.IsPaused("escrow"))
	require.NoError(t, manager.SetPaused("escrow", false))
	require.False(t, manager.IsPaused("escrow"))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	manager := state.NewManager(db1)
	require.NoError(t, manager.TradePut(&escrow.Trade{
		Index:    0,
		Seller:   addr(0x01),
		Buyer:    addr(0x02),
		Mediator: addr(0x03),
		Amount:   big.NewInt(10),
		State:    escrow.TradeAwaitingAsset,
	}))
	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	reopened := state.NewManager(db2)

	stored, ok, err := reopened.TradeGet(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr(0x01), stored.Seller)
}
