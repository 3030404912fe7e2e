package token_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"tradevault/native/token"
	"tradevault/state"
	"tradevault/storage"
)

func newLedger(t *testing.T) *token.Ledger {
	t.Helper()
	return token.NewLedger(state.NewManager(storage.NewMemDB()))
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestMintAndBalance(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)

	balance, err := ledger.BalanceOf(owner)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.NoError(t, ledger.Mint(owner, big.NewInt(100)))
	require.Error(t, ledger.Mint(owner, big.NewInt(0)))

	balance, err = ledger.BalanceOf(owner)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
}

func TestTransferRequiresBalance(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	recipient := addr(0x02)

	err := ledger.Transfer(owner, recipient, big.NewInt(5))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	require.NoError(t, ledger.Mint(owner, big.NewInt(10)))
	require.NoError(t, ledger.Transfer(owner, recipient, big.NewInt(5)))

	got, err := ledger.BalanceOf(recipient)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Int64())
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	spender := addr(0x02)
	recipient := addr(0x03)

	require.NoError(t, ledger.Mint(owner, big.NewInt(100)))

	err := ledger.TransferFrom(spender, owner, recipient, big.NewInt(10))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	require.NoError(t, ledger.Approve(owner, spender, big.NewInt(15)))
	require.NoError(t, ledger.TransferFrom(spender, owner, recipient, big.NewInt(10)))

	remaining, err := ledger.Allowance(owner, spender)
	require.NoError(t, err)
	require.Equal(t, int64(5), remaining.Int64())

	err = ledger.TransferFrom(spender, owner, recipient, big.NewInt(10))
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	balance, err := ledger.BalanceOf(recipient)
	require.NoError(t, err)
	require.Equal(t, int64(10), balance.Int64())
}

func TestTransferFromByOwnerSkipsAllowance(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	recipient := addr(0x02)

	require.NoError(t, ledger.Mint(owner, big.NewInt(10)))
	require.NoError(t, ledger.TransferFrom(owner, owner, recipient, big.NewInt(10)))

	balance, err := ledger.BalanceOf(owner)
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

func TestFailedPullLeavesAllowanceIntact(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	spender := addr(0x02)
	recipient := addr(0x03)

	require.NoError(t, ledger.Approve(owner, spender, big.NewInt(10)))
	err := ledger.TransferFrom(spender, owner, recipient, big.NewInt(10))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	remaining, err := ledger.Allowance(owner, spender)
	require.NoError(t, err)
	require.Equal(t, int64(10), remaining.Int64())
}
