package deed

import (
	"errors"
	"fmt"
)

var (
	errNilState = errors.New("deed ledger: state not configured")

	// ErrNotFound is returned when the referenced item does not exist.
	ErrNotFound = errors.New("deed: item not found")
	// ErrNotOwner is returned when the nominal owner does not actually own
	// the item.
	ErrNotOwner = errors.New("deed: caller does not own item")
	// ErrNotApproved is returned when an operator pulls an item without a
	// matching per-item approval from the owner.
	ErrNotApproved = errors.New("deed: operator not approved for item")
)

// Deed records ownership of a single unique item plus at most one approved
// transfer operator. The approval is cleared on every transfer.
type Deed struct {
	ID       uint64   `json:"id"`
	Owner    [20]byte `json:"owner"`
	Approved [20]byte `json:"approved,omitempty"`
}

// Clone returns a copy of the deed record.
func (d *Deed) Clone() *Deed {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

type ledgerState interface {
	DeedGet(assetID uint64) (*Deed, bool, error)
	DeedPut(*Deed) error
}

// Ledger tracks non-fungible ownership with a per-item authorization step
// before any third party may pull the item.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs an ownership ledger bound to the supplied state
// backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

// Mint registers a new unique item under the owner. Minting an existing item
// is rejected.
func (l *Ledger) Mint(owner [20]byte, assetID uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if owner == ([20]byte{}) {
		return fmt.Errorf("deed: owner identity required")
	}
	_, ok, err := l.state.DeedGet(assetID)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("deed: item %d already minted", assetID)
	}
	return l.state.DeedPut(&Deed{ID: assetID, Owner: owner})
}

// OwnerOf returns the current owner of the item.
func (l *Ledger) OwnerOf(assetID uint64) ([20]byte, error) {
	if l == nil || l.state == nil {
		return [20]byte{}, errNilState
	}
	d, ok, err := l.state.DeedGet(assetID)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrNotFound
	}
	return d.Owner, nil
}

// Approve authorizes the operator to pull the specific item. Only the owner
// may grant the approval; a zero operator clears it.
func (l *Ledger) Approve(owner, operator [20]byte, assetID uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	d, ok, err := l.state.DeedGet(assetID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if d.Owner != owner {
		return ErrNotOwner
	}
	d = d.Clone()
	d.Approved = operator
	return l.state.DeedPut(d)
}

// Approved returns the operator currently authorized for the item, if any.
func (l *Ledger) Approved(assetID uint64) ([20]byte, error) {
	if l == nil || l.state == nil {
		return [20]byte{}, errNilState
	}
	d, ok, err := l.state.DeedGet(assetID)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrNotFound
	}
	return d.Approved, nil
}

// Transfer moves an item the owner holds directly to the recipient.
func (l *Ledger) Transfer(owner, recipient [20]byte, assetID uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.move(owner, owner, recipient, assetID)
}

// TransferFrom pulls the item from the owner on behalf of the operator. The
// owner must have pre-authorized the operator for this specific item.
func (l *Ledger) TransferFrom(operator, owner, recipient [20]byte, assetID uint64) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.move(operator, owner, recipient, assetID)
}

func (l *Ledger) move(operator, owner, recipient [20]byte, assetID uint64) error {
	if recipient == ([20]byte{}) {
		return fmt.Errorf("deed: recipient identity required")
	}
	d, ok, err := l.state.DeedGet(assetID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if d.Owner != owner {
		return ErrNotOwner
	}
	if operator != owner && d.Approved != operator {
		return ErrNotApproved
	}
	d = d.Clone()
	d.Owner = recipient
	d.Approved = [20]byte{}
	return l.state.DeedPut(d)
}
