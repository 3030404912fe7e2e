package token

import (
	"errors"
	"fmt"
	"math/big"

	"tradevault/core/types"
)

var (
	errNilState = errors.New("token ledger: state not configured")

	// ErrInsufficientBalance is returned when a transfer exceeds the owner's
	// balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance is returned when a pull exceeds what the owner
	// authorized for the spender.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

type ledgerState interface {
	TokenGetAccount(addr [20]byte) (*types.Account, error)
	TokenPutAccount(addr [20]byte, account *types.Account) error
	TokenGetAllowance(owner, spender [20]byte) (*big.Int, error)
	TokenPutAllowance(owner, spender [20]byte, amount *big.Int) error
}

// Ledger tracks fungible balances with an explicit owner-granted allowance
// step before any third party may pull funds.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a fungible ledger bound to the supplied state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Mint credits newly issued units to the owner.
func (l *Ledger) Mint(owner [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: mint amount must be positive")
	}
	acc, err := l.state.TokenGetAccount(owner)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amt)
	return l.state.TokenPutAccount(owner, acc)
}

// BalanceOf returns the owner's current balance.
func (l *Ledger) BalanceOf(owner [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.state.TokenGetAccount(owner)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(ensureAccount(acc).Balance), nil
}

// Approve authorizes the spender to pull up to amount from the owner. The
// grant replaces any previous allowance for the pair.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: allowance must be non-negative")
	}
	return l.state.TokenPutAllowance(owner, spender, amt)
}

// Allowance returns the remaining amount the spender may pull from the owner.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	allowance, err := l.state.TokenGetAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(allowance), nil
}

// Transfer moves the owner's own balance to the recipient.
func (l *Ledger) Transfer(owner, recipient [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return l.move(owner, recipient, cloneBigInt(amount))
}

// TransferFrom pulls amount from the owner on behalf of the spender,
// consuming the matching allowance. The owner must have pre-authorized the
// spender via Approve.
func (l *Ledger) TransferFrom(spender, owner, recipient [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if spender != owner {
		allowance, err := l.state.TokenGetAllowance(owner, spender)
		if err != nil {
			return err
		}
		allowance = cloneBigInt(allowance)
		if allowance.Cmp(amt) < 0 {
			return ErrInsufficientAllowance
		}
		if err := l.move(owner, recipient, amt); err != nil {
			return err
		}
		return l.state.TokenPutAllowance(owner, spender, new(big.Int).Sub(allowance, amt))
	}
	return l.move(owner, recipient, amt)
}

func (l *Ledger) move(from, to [20]byte, amt *big.Int) error {
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative transfer amount")
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromAcc, err := l.state.TokenGetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := l.state.TokenGetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.state.TokenPutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.TokenPutAccount(to, toAcc)
}
