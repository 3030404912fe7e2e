package escrow

import (
	"math/big"
	"testing"
)

func TestTradeEventAttributes(t *testing.T) {
	trade := &Trade{
		Index:    7,
		Seller:   newTestAddress(0x01),
		Buyer:    newTestAddress(0x02),
		Mediator: newTestAddress(0x03),
		Amount:   big.NewInt(10),
		AssetID:  1,
		State:    TradeAwaitingAsset,
	}
	evt := NewTradeCreatedEvent(trade)
	if evt.Type != EventTypeTradeCreated {
		t.Fatalf("unexpected event type %s", evt.Type)
	}
	if evt.Attributes["index"] != "7" {
		t.Fatalf("expected index attribute 7, got %s", evt.Attributes["index"])
	}
	if evt.Attributes["amount"] != "10" {
		t.Fatalf("expected amount attribute 10, got %s", evt.Attributes["amount"])
	}
	if evt.Attributes["assetId"] != "1" {
		t.Fatalf("expected assetId attribute 1, got %s", evt.Attributes["assetId"])
	}
	if evt.Attributes["state"] != "awaiting_asset" {
		t.Fatalf("unexpected state attribute %s", evt.Attributes["state"])
	}
	if _, ok := evt.Attributes["cancelledBy"]; ok {
		t.Fatalf("cancelledBy must be omitted before cancellation")
	}
}

func TestCancelledEventCarriesRequester(t *testing.T) {
	trade := &Trade{
		Index:       9,
		Seller:      newTestAddress(0x01),
		Buyer:       newTestAddress(0x02),
		Mediator:    newTestAddress(0x03),
		Amount:      big.NewInt(10),
		AssetID:     1,
		State:       TradeCancelled,
		CancelledBy: newTestAddress(0x02),
	}
	evt := NewTradeCancelledEvent(trade)
	if evt.Attribute("cancelledBy") == "" {
		t.Fatalf("cancellation event must carry the requester identity")
	}
}

func TestNilTradeEventIsEmpty(t *testing.T) {
	evt := NewTradeCreatedEvent(nil)
	if evt.Type != EventTypeTradeCreated {
		t.Fatalf("unexpected event type %s", evt.Type)
	}
	if len(evt.Attributes) != 0 {
		t.Fatalf("nil trade must produce no attributes")
	}
}
