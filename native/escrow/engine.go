package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"tradevault/core/events"
	"tradevault/core/types"
	nativecommon "tradevault/native/common"
)

var (
	errNilState       = errors.New("escrow engine: state not configured")
	errNotInitialized = errors.New("escrow engine: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is invoked twice on
	// the same engine instance.
	ErrAlreadyInitialized = errors.New("escrow engine: already initialized")
	// ErrTradeNotFound is returned when the referenced trade index does not
	// exist.
	ErrTradeNotFound = errors.New("escrow: trade not found")
	// ErrUnauthorized is returned when the caller does not hold the role the
	// action requires.
	ErrUnauthorized = errors.New("escrow: caller not authorized")
	// ErrInvalidState is returned when the trade is not in the state the
	// action requires, including attempts against terminal trades.
	ErrInvalidState = errors.New("escrow: action not allowed in current state")
	// ErrMediatorUnknown is returned when trade creation references a
	// mediator outside the registry.
	ErrMediatorUnknown = errors.New("escrow: mediator not registered")
	// ErrInvalidParty is returned when a trade names a zero identity or the
	// same identity for more than one role.
	ErrInvalidParty = errors.New("escrow: trade parties must be distinct non-zero identities")
)

const escrowModuleName = "escrow"

type engineState interface {
	TradePut(*Trade) error
	TradeGet(index uint64) (*Trade, bool, error)
	TradeAppend(*Trade) (uint64, error)
	TradeCount() (uint64, error)
	MediatorPut(addr [20]byte) error
	MediatorExists(addr [20]byte) (bool, error)
}

// TokenLedger is the fungible-balance collaborator. TransferFrom pulls funds
// the owner pre-authorized for the spender; Transfer moves the caller's own
// balance.
type TokenLedger interface {
	TransferFrom(spender, owner, recipient [20]byte, amount *big.Int) error
	Transfer(owner, recipient [20]byte, amount *big.Int) error
}

// DeedLedger is the non-fungible-ownership collaborator with the same
// pre-authorization contract, keyed per item.
type DeedLedger interface {
	TransferFrom(operator, owner, recipient [20]byte, assetID uint64) error
	Transfer(owner, recipient [20]byte, assetID uint64) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine drives each trade through its lifecycle. It validates actor identity
// and trade state before touching either ledger, and commits the new state
// only after every ledger call succeeded, so an action either fully applies
// or leaves trades and balances untouched.
type Engine struct {
	state       engineState
	token       TokenLedger
	deeds       DeedLedger
	admin       [20]byte
	vault       [20]byte
	emitter     events.Emitter
	nowFn       func() int64
	pauses      nativecommon.PauseView
	initialized bool
}

// NewEngine creates an escrow engine with a no-op emitter. Callers must bind
// the state backend via SetState and the ledgers via Initialize before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses configures the module pause view consulted by every mutating
// operation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Initialize binds the engine to the administrative identity, its custody
// address and the two ledger collaborators. It may be called exactly once per
// engine instance.
func (e *Engine) Initialize(admin, vault [20]byte, token TokenLedger, deeds DeedLedger) error {
	if e == nil {
		return errNotInitialized
	}
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if admin == ([20]byte{}) {
		return fmt.Errorf("escrow engine: admin identity required")
	}
	if vault == ([20]byte{}) {
		return fmt.Errorf("escrow engine: vault identity required")
	}
	if token == nil || deeds == nil {
		return fmt.Errorf("escrow engine: both ledgers required")
	}
	e.admin = admin
	e.vault = vault
	e.token = token
	e.deeds = deeds
	e.initialized = true
	return nil
}

// Admin returns the administrative identity bound at initialization.
func (e *Engine) Admin() [20]byte { return e.admin }

// Vault returns the custody address holding staked assets.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !e.initialized {
		return errNotInitialized
	}
	return nil
}

// RegisterMediator adds the identity to the mediator registry. Only the admin
// may register; repeating a registration is a no-op.
func (e *Engine) RegisterMediator(caller, mediator [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	if caller != e.admin {
		return fmt.Errorf("%w: registry writes require the admin", ErrUnauthorized)
	}
	if mediator == ([20]byte{}) {
		return fmt.Errorf("%w: mediator identity required", ErrInvalidParty)
	}
	exists, err := e.state.MediatorExists(mediator)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := e.state.MediatorPut(mediator); err != nil {
		return err
	}
	e.emit(NewMediatorRegisteredEvent(mediator))
	return nil
}

// IsAuthorized reports whether the identity belongs to the mediator registry.
// Pure lookup, no side effects.
func (e *Engine) IsAuthorized(mediator [20]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.MediatorExists(mediator)
}

// CreateTrade allocates a new trade at the next index. The caller must be one
// of the counterparties, all three roles must be distinct non-zero identities
// and the mediator must be registered.
func (e *Engine) CreateTrade(caller, seller, mediator, buyer [20]byte, amount *big.Int, assetID uint64) (*Trade, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return nil, err
	}
	if seller == ([20]byte{}) || buyer == ([20]byte{}) || mediator == ([20]byte{}) {
		return nil, ErrInvalidParty
	}
	if seller == buyer || seller == mediator || buyer == mediator {
		return nil, ErrInvalidParty
	}
	if caller != seller && caller != buyer {
		return nil, fmt.Errorf("%w: trade creation requires a counterparty", ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: amount must be positive")
	}
	registered, err := e.state.MediatorExists(mediator)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, ErrMediatorUnknown
	}
	trade := &Trade{
		Seller:    seller,
		Buyer:     buyer,
		Mediator:  mediator,
		Amount:    new(big.Int).Set(amount),
		AssetID:   assetID,
		State:     TradeAwaitingAsset,
		CreatedAt: e.now(),
	}
	// Index assignment and the store happen as one state operation so a
	// failed store never burns an index.
	index, err := e.state.TradeAppend(trade)
	if err != nil {
		return nil, err
	}
	trade.Index = index
	e.emit(NewTradeCreatedEvent(trade))
	return trade.Clone(), nil
}

// StakeAsset pulls the unique item from the seller into custody. The seller
// must have pre-authorized the vault as transfer operator for the item.
func (e *Engine) StakeAsset(index uint64, caller [20]byte) error {
	trade, err := e.loadForAction(index, TradeAwaitingAsset)
	if err != nil {
		return err
	}
	if caller != trade.Seller {
		return fmt.Errorf("%w: only the seller may stake the asset", ErrUnauthorized)
	}
	if err := e.deeds.TransferFrom(e.vault, trade.Seller, e.vault, trade.AssetID); err != nil {
		return fmt.Errorf("escrow: stake asset: %w", err)
	}
	trade.State = TradeAwaitingPayment
	if err := e.state.TradePut(trade); err != nil {
		return err
	}
	e.emit(NewAssetStakedEvent(trade))
	return nil
}

// StakePayment pulls the payment amount from the buyer into custody. The buyer
// must have pre-authorized the vault as spender for at least the amount.
func (e *Engine) StakePayment(index uint64, caller [20]byte) error {
	trade, err := e.loadForAction(index, TradeAwaitingPayment)
	if err != nil {
		return err
	}
	if caller != trade.Buyer {
		return fmt.Errorf("%w: only the buyer may stake the payment", ErrUnauthorized)
	}
	if err := e.token.TransferFrom(e.vault, trade.Buyer, e.vault, trade.Amount); err != nil {
		return fmt.Errorf("escrow: stake payment: %w", err)
	}
	trade.State = TradeAwaitingDelivery
	if err := e.state.TradePut(trade); err != nil {
		return err
	}
	e.emit(NewPaymentStakedEvent(trade))
	return nil
}

// ConfirmDelivery releases the payment to the seller and the item to the
// buyer. Only the mediator may confirm, and only once both legs are staked.
func (e *Engine) ConfirmDelivery(index uint64, caller [20]byte) error {
	trade, err := e.loadForAction(index, TradeAwaitingDelivery)
	if err != nil {
		return err
	}
	if caller != trade.Mediator {
		return fmt.Errorf("%w: only the mediator may confirm delivery", ErrUnauthorized)
	}
	if err := e.token.Transfer(e.vault, trade.Seller, trade.Amount); err != nil {
		return fmt.Errorf("escrow: release payment: %w", err)
	}
	if err := e.deeds.Transfer(e.vault, trade.Buyer, trade.AssetID); err != nil {
		return fmt.Errorf("escrow: release asset: %w", err)
	}
	trade.State = TradeComplete
	if err := e.state.TradePut(trade); err != nil {
		return err
	}
	e.emit(NewDeliveryConfirmedEvent(trade))
	return nil
}

// UnstakePayment refunds both staked legs to their original owners. Either
// counterparty may trigger it while the trade awaits delivery; the identity of
// the requester is recorded for auditability only.
func (e *Engine) UnstakePayment(index uint64, caller [20]byte) error {
	trade, err := e.loadForAction(index, TradeAwaitingDelivery)
	if err != nil {
		return err
	}
	if caller != trade.Buyer && caller != trade.Seller {
		return fmt.Errorf("%w: only a counterparty may unstake the payment", ErrUnauthorized)
	}
	if err := e.refundBothLegs(trade); err != nil {
		return err
	}
	if err := e.cancelTrade(trade, caller); err != nil {
		return err
	}
	e.emit(NewPaymentUnstakedEvent(trade))
	e.emit(NewTradeCancelledEvent(trade))
	return nil
}

// UnstakeAsset refunds the staked item to the seller before any payment was
// staked, cancelling the trade.
func (e *Engine) UnstakeAsset(index uint64, caller [20]byte) error {
	trade, err := e.loadForAction(index, TradeAwaitingPayment)
	if err != nil {
		return err
	}
	if caller != trade.Seller {
		return fmt.Errorf("%w: only the seller may unstake the asset", ErrUnauthorized)
	}
	if err := e.deeds.Transfer(e.vault, trade.Seller, trade.AssetID); err != nil {
		return fmt.Errorf("escrow: refund asset: %w", err)
	}
	if err := e.cancelTrade(trade, caller); err != nil {
		return err
	}
	e.emit(NewAssetUnstakedEvent(trade))
	e.emit(NewTradeCancelledEvent(trade))
	return nil
}

// CancelByMediator lets the mediator force-cancel a fully staked trade,
// refunding both legs. The refund effect is identical to UnstakePayment.
func (e *Engine) CancelByMediator(index uint64, caller [20]byte) error {
	trade, err := e.loadForAction(index, TradeAwaitingDelivery)
	if err != nil {
		return err
	}
	if caller != trade.Mediator {
		return fmt.Errorf("%w: only the mediator may cancel the trade", ErrUnauthorized)
	}
	if err := e.refundBothLegs(trade); err != nil {
		return err
	}
	if err := e.cancelTrade(trade, caller); err != nil {
		return err
	}
	e.emit(NewTradeCancelledEvent(trade))
	return nil
}

// GetTrade returns a copy of the stored trade.
func (e *Engine) GetTrade(index uint64) (*Trade, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	trade, ok, err := e.state.TradeGet(index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTradeNotFound
	}
	return SanitizeTrade(trade)
}

// TradeCount returns the number of trades created so far.
func (e *Engine) TradeCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.TradeCount()
}

func (e *Engine) loadForAction(index uint64, required TradeState) (*Trade, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return nil, err
	}
	trade, ok, err := e.state.TradeGet(index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTradeNotFound
	}
	sanitized, err := SanitizeTrade(trade)
	if err != nil {
		return nil, err
	}
	if sanitized.State != required {
		return nil, fmt.Errorf("%w: trade %d is %s", ErrInvalidState, index, sanitized.State)
	}
	return sanitized, nil
}

// refundBothLegs returns the payment to the buyer and the item to the seller.
// Both transfers move vault custody only, so a trade in AwaitingDelivery
// cannot half-refund: a failure on the first leg aborts before anything moved.
func (e *Engine) refundBothLegs(trade *Trade) error {
	if err := e.token.Transfer(e.vault, trade.Buyer, trade.Amount); err != nil {
		return fmt.Errorf("escrow: refund payment: %w", err)
	}
	if err := e.deeds.Transfer(e.vault, trade.Seller, trade.AssetID); err != nil {
		return fmt.Errorf("escrow: refund asset: %w", err)
	}
	return nil
}

func (e *Engine) cancelTrade(trade *Trade, by [20]byte) error {
	trade.State = TradeCancelled
	trade.CancelledBy = by
	return e.state.TradePut(trade)
}
