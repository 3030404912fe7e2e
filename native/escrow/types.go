package escrow

import (
	"fmt"
	"math/big"
)

// TradeState represents the lifecycle states of an escrowed trade.
type TradeState uint8

const (
	// TradeAwaitingAsset is the initial state: the seller has not yet staked
	// the unique item.
	TradeAwaitingAsset TradeState = iota
	// TradeAwaitingPayment means the item is in custody and the buyer has not
	// yet staked the payment.
	TradeAwaitingPayment
	// TradeAwaitingDelivery means both legs are in custody and the trade
	// awaits the mediator verdict.
	TradeAwaitingDelivery
	// TradeComplete is terminal: payment went to the seller, the item to the
	// buyer.
	TradeComplete
	// TradeCancelled is terminal: every staked leg was refunded to its
	// original owner.
	TradeCancelled
)

// Valid reports whether the state value is within the supported range.
func (s TradeState) Valid() bool {
	switch s {
	case TradeAwaitingAsset, TradeAwaitingPayment, TradeAwaitingDelivery, TradeComplete, TradeCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further action may transition out of the state.
func (s TradeState) Terminal() bool {
	return s == TradeComplete || s == TradeCancelled
}

func (s TradeState) String() string {
	switch s {
	case TradeAwaitingAsset:
		return "awaiting_asset"
	case TradeAwaitingPayment:
		return "awaiting_payment"
	case TradeAwaitingDelivery:
		return "awaiting_delivery"
	case TradeComplete:
		return "complete"
	case TradeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Trade captures the immutable terms and runtime state of a single escrowed
// exchange: the seller owes the unique item identified by AssetID, the buyer
// owes Amount, and the mediator arbitrates completion or cancellation.
type Trade struct {
	Index       uint64     `json:"index"`
	Seller      [20]byte   `json:"seller"`
	Buyer       [20]byte   `json:"buyer"`
	Mediator    [20]byte   `json:"mediator"`
	Amount      *big.Int   `json:"amount"`
	AssetID     uint64     `json:"assetId"`
	State       TradeState `json:"state"`
	CreatedAt   int64      `json:"createdAt"`
	CancelledBy [20]byte   `json:"cancelledBy,omitempty"`
}

// Clone returns a deep copy of the trade so callers can safely mutate the copy
// without affecting the stored instance.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Amount != nil {
		clone.Amount = new(big.Int).Set(t.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SanitizeTrade validates and normalises the supplied trade definition,
// returning a cloned instance with a non-nil amount field. The function does
// not mutate the original value.
func SanitizeTrade(t *Trade) (*Trade, error) {
	if t == nil {
		return nil, fmt.Errorf("escrow: nil trade")
	}
	clone := t.Clone()
	if clone.Amount == nil {
		clone.Amount = big.NewInt(0)
	}
	if clone.Amount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: amount must be non-negative")
	}
	if clone.Seller == ([20]byte{}) || clone.Buyer == ([20]byte{}) || clone.Mediator == ([20]byte{}) {
		return nil, fmt.Errorf("escrow: trade parties must be non-zero")
	}
	if !clone.State.Valid() {
		return nil, fmt.Errorf("escrow: invalid trade state %d", clone.State)
	}
	return clone, nil
}
