package escrow

import (
	"encoding/hex"
	"strconv"

	"tradevault/core/types"
)

const (
	EventTypeMediatorRegistered = "escrow.mediator_registered"
	EventTypeTradeCreated       = "escrow.trade.created"
	EventTypeAssetStaked        = "escrow.trade.asset_staked"
	EventTypePaymentStaked      = "escrow.trade.payment_staked"
	EventTypeDeliveryConfirmed  = "escrow.trade.delivery_confirmed"
	EventTypePaymentUnstaked    = "escrow.trade.payment_unstaked"
	EventTypeAssetUnstaked      = "escrow.trade.asset_unstaked"
	EventTypeTradeCancelled     = "escrow.trade.cancelled"
)

// NewMediatorRegisteredEvent returns the canonical payload emitted when an
// identity joins the mediator registry.
func NewMediatorRegisteredEvent(mediator [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeMediatorRegistered,
		Attributes: map[string]string{
			"mediator": hex.EncodeToString(mediator[:]),
		},
	}
}

// NewTradeCreatedEvent returns the canonical payload for a newly created
// trade.
func NewTradeCreatedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeTradeCreated, t)
}

// NewAssetStakedEvent is emitted when the seller's item enters custody.
func NewAssetStakedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeAssetStaked, t)
}

// NewPaymentStakedEvent is emitted when the buyer's payment enters custody.
func NewPaymentStakedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypePaymentStaked, t)
}

// NewDeliveryConfirmedEvent is emitted when the mediator settles the trade in
// favour of both counterparties.
func NewDeliveryConfirmedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeDeliveryConfirmed, t)
}

// NewPaymentUnstakedEvent is emitted when a counterparty pulls the staked
// payment back out of custody.
func NewPaymentUnstakedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypePaymentUnstaked, t)
}

// NewAssetUnstakedEvent is emitted when the seller pulls the staked item back
// out of custody before payment was staked.
func NewAssetUnstakedEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeAssetUnstaked, t)
}

// NewTradeCancelledEvent accompanies whichever unstake or cancel action
// terminated the trade and carries the identity that triggered it.
func NewTradeCancelledEvent(t *Trade) *types.Event {
	return newTradeEvent(EventTypeTradeCancelled, t)
}

func newTradeEvent(eventType string, t *Trade) *types.Event {
	attrs := make(map[string]string)
	if t == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeTrade(t)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["index"] = strconv.FormatUint(sanitized.Index, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	attrs["mediator"] = hex.EncodeToString(sanitized.Mediator[:])
	attrs["amount"] = sanitized.Amount.String()
	attrs["assetId"] = strconv.FormatUint(sanitized.AssetID, 10)
	attrs["state"] = sanitized.State.String()
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	if sanitized.CancelledBy != ([20]byte{}) {
		attrs["cancelledBy"] = hex.EncodeToString(sanitized.CancelledBy[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
