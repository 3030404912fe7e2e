package escrow

import (
	"math/big"
	"testing"
)

func TestTradeStateValid(t *testing.T) {
	for _, state := range []TradeState{TradeAwaitingAsset, TradeAwaitingPayment, TradeAwaitingDelivery, TradeComplete, TradeCancelled} {
		if !state.Valid() {
			t.Fatalf("state %v should be valid", state)
		}
	}
	if TradeState(99).Valid() {
		t.Fatalf("out-of-range state should be invalid")
	}
}

func TestTradeStateTerminal(t *testing.T) {
	if !TradeComplete.Terminal() || !TradeCancelled.Terminal() {
		t.Fatalf("complete and cancelled must be terminal")
	}
	if TradeAwaitingAsset.Terminal() || TradeAwaitingPayment.Terminal() || TradeAwaitingDelivery.Terminal() {
		t.Fatalf("non-terminal states must not report terminal")
	}
}

func TestCloneIsDeep(t *testing.T) {
	trade := &Trade{
		Index:    3,
		Seller:   newTestAddress(0x01),
		Buyer:    newTestAddress(0x02),
		Mediator: newTestAddress(0x03),
		Amount:   big.NewInt(10),
		AssetID:  1,
		State:    TradeAwaitingAsset,
	}
	clone := trade.Clone()
	clone.Amount.SetInt64(999)
	clone.State = TradeCancelled
	if trade.Amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("mutating the clone must not affect the original amount")
	}
	if trade.State != TradeAwaitingAsset {
		t.Fatalf("mutating the clone must not affect the original state")
	}
}

func TestSanitizeTradeRejectsBadRecords(t *testing.T) {
	base := func() *Trade {
		return &Trade{
			Seller:   newTestAddress(0x01),
			Buyer:    newTestAddress(0x02),
			Mediator: newTestAddress(0x03),
			Amount:   big.NewInt(10),
			State:    TradeAwaitingAsset,
		}
	}
	if _, err := SanitizeTrade(nil); err == nil {
		t.Fatalf("nil trade must be rejected")
	}
	negative := base()
	negative.Amount = big.NewInt(-1)
	if _, err := SanitizeTrade(negative); err == nil {
		t.Fatalf("negative amount must be rejected")
	}
	zeroParty := base()
	zeroParty.Mediator = [20]byte{}
	if _, err := SanitizeTrade(zeroParty); err == nil {
		t.Fatalf("zero mediator must be rejected")
	}
	badState := base()
	badState.State = TradeState(42)
	if _, err := SanitizeTrade(badState); err == nil {
		t.Fatalf("invalid state must be rejected")
	}
	nilAmount := base()
	nilAmount.Amount = nil
	sanitized, err := SanitizeTrade(nilAmount)
	if err != nil {
		t.Fatalf("nil amount should normalise to zero: %v", err)
	}
	if sanitized.Amount == nil || sanitized.Amount.Sign() != 0 {
		t.Fatalf("expected zero amount after sanitise")
	}
}
