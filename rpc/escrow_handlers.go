package rpc

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"tradevault/native/deed"
	"tradevault/native/escrow"
	"tradevault/native/token"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
)

type tradeCreateParams struct {
	Caller   string `json:"caller"`
	Seller   string `json:"seller"`
	Mediator string `json:"mediator"`
	Buyer    string `json:"buyer"`
	Amount   string `json:"amount"`
	AssetID  uint64 `json:"assetId"`
}

type tradeActorParams struct {
	Index  uint64 `json:"index"`
	Caller string `json:"caller"`
}

type tradeIndexParams struct {
	Index uint64 `json:"index"`
}

type mediatorParams struct {
	Caller   string `json:"caller,omitempty"`
	Mediator string `json:"mediator"`
}

type tradeJSON struct {
	Index       uint64  `json:"index"`
	Seller      string  `json:"seller"`
	Buyer       string  `json:"buyer"`
	Mediator    string  `json:"mediator"`
	Amount      string  `json:"amount"`
	AssetID     uint64  `json:"assetId"`
	State       string  `json:"state"`
	CreatedAt   int64   `json:"createdAt"`
	CancelledBy *string `json:"cancelledBy,omitempty"`
}

func tradeToJSON(t *escrow.Trade) *tradeJSON {
	if t == nil {
		return nil
	}
	out := &tradeJSON{
		Index:     t.Index,
		Seller:    formatAddress(t.Seller),
		Buyer:     formatAddress(t.Buyer),
		Mediator:  formatAddress(t.Mediator),
		Amount:    t.Amount.String(),
		AssetID:   t.AssetID,
		State:     t.State.String(),
		CreatedAt: t.CreatedAt,
	}
	if t.CancelledBy != ([20]byte{}) {
		cancelledBy := formatAddress(t.CancelledBy)
		out.CancelledBy = &cancelledBy
	}
	return out
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

// writeEscrowError maps engine and ledger failures onto the escrow error-code
// block. The caller's error is returned unchanged for metrics.
func writeEscrowError(w http.ResponseWriter, id interface{}, err error) error {
	switch {
	case errors.Is(err, escrow.ErrTradeNotFound), errors.Is(err, deed.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeEscrowNotFound, "not_found", err.Error())
	case errors.Is(err, escrow.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeEscrowForbidden, "forbidden", err.Error())
	case errors.Is(err, escrow.ErrInvalidState):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "conflict", err.Error())
	case errors.Is(err, escrow.ErrMediatorUnknown), errors.Is(err, escrow.ErrInvalidParty):
		writeError(w, http.StatusBadRequest, id, codeEscrowInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, token.ErrInsufficientBalance), errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, deed.ErrNotOwner), errors.Is(err, deed.ErrNotApproved):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "ledger_rejected", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeEscrowInternal, "internal", err.Error())
	}
	return err
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params tradeCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	seller, err := parseBech32Address(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	mediator, err := parseBech32Address(params.Mediator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	buyer, err := parseBech32Address(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	s.mu.Lock()
	trade, err := s.engine.CreateTrade(caller, seller, mediator, buyer, amount, params.AssetID)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, tradeToJSON(trade))
	return nil
}

func (s *Server) handleTradeAction(w http.ResponseWriter, r *http.Request, req *RPCRequest, action func(uint64, [20]byte) error) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params tradeActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	s.mu.Lock()
	err = action(params.Index, caller)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	s.mu.Lock()
	trade, getErr := s.engine.GetTrade(params.Index)
	s.mu.Unlock()
	if getErr != nil {
		return writeEscrowError(w, req.ID, getErr)
	}
	writeResult(w, req.ID, tradeToJSON(trade))
	return nil
}

func (s *Server) handleStakeAsset(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	return s.handleTradeAction(w, r, req, s.engine.StakeAsset)
}

func (s *Server) handleStakePayment(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	return s.handleTradeAction(w, r, req, s.engine.StakePayment)
}

func (s *Server) handleConfirmDelivery(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	return s.handleTradeAction(w, r, req, s.engine.ConfirmDelivery)
}

func (s *Server) handleUnstakePayment(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	return s.handleTradeAction(w, r, req, s.engine.UnstakePayment)
}

func (s *Server) handleUnstakeAsset(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	return s.handleTradeAction(w, r, req, s.engine.UnstakeAsset)
}

func (s *Server) handleCancelByMediator(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	return s.handleTradeAction(w, r, req, s.engine.CancelByMediator)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	var params tradeIndexParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	trade, err := s.engine.GetTrade(params.Index)
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, tradeToJSON(trade))
	return nil
}

func (s *Server) handleRegisterMediator(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params mediatorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	mediator, err := parseBech32Address(params.Mediator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	s.mu.Lock()
	err = s.engine.RegisterMediator(caller, mediator)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"registered": true})
	return nil
}

func (s *Server) handleIsMediator(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	var params mediatorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	mediator, err := parseBech32Address(params.Mediator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	authorized, err := s.engine.IsAuthorized(mediator)
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"authorized": authorized})
	return nil
}
