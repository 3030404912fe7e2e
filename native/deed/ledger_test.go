package deed_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradevault/native/deed"
	"tradevault/state"
	"tradevault/storage"
)

func newLedger(t *testing.T) *deed.Ledger {
	t.Helper()
	return deed.NewLedger(state.NewManager(storage.NewMemDB()))
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestMintAndOwnerOf(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)

	_, err := ledger.OwnerOf(1)
	require.ErrorIs(t, err, deed.ErrNotFound)

	require.NoError(t, ledger.Mint(owner, 1))
	require.Error(t, ledger.Mint(owner, 1), "duplicate mint must fail")

	got, err := ledger.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, owner, got)
}

func TestApproveRequiresOwner(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	operator := addr(0x02)

	require.NoError(t, ledger.Mint(owner, 1))
	err := ledger.Approve(operator, operator, 1)
	require.ErrorIs(t, err, deed.ErrNotOwner)
	require.NoError(t, ledger.Approve(owner, operator, 1))

	approved, err := ledger.Approved(1)
	require.NoError(t, err)
	require.Equal(t, operator, approved)
}

func TestTransferFromNeedsApproval(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	operator := addr(0x02)
	recipient := addr(0x03)

	require.NoError(t, ledger.Mint(owner, 1))

	err := ledger.TransferFrom(operator, owner, recipient, 1)
	require.ErrorIs(t, err, deed.ErrNotApproved)

	require.NoError(t, ledger.Approve(owner, operator, 1))
	require.NoError(t, ledger.TransferFrom(operator, owner, recipient, 1))

	got, err := ledger.OwnerOf(1)
	require.NoError(t, err)
	require.Equal(t, recipient, got)
}

func TestApprovalClearedOnTransfer(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	operator := addr(0x02)
	recipient := addr(0x03)

	require.NoError(t, ledger.Mint(owner, 1))
	require.NoError(t, ledger.Approve(owner, operator, 1))
	require.NoError(t, ledger.TransferFrom(operator, owner, recipient, 1))

	err := ledger.TransferFrom(operator, recipient, owner, 1)
	require.ErrorIs(t, err, deed.ErrNotApproved, "stale approval must not survive a transfer")
}

func TestTransferRejectsWrongOwner(t *testing.T) {
	ledger := newLedger(t)
	owner := addr(0x01)
	other := addr(0x02)

	require.NoError(t, ledger.Mint(owner, 1))
	err := ledger.Transfer(other, other, 1)
	require.ErrorIs(t, err, deed.ErrNotOwner)
}
