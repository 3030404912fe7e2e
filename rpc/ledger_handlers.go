package rpc

import (
	"errors"
	"net/http"
)

type tokenMintParams struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

type tokenApproveParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type tokenBalanceParams struct {
	Owner string `json:"owner"`
}

type deedMintParams struct {
	Owner   string `json:"owner"`
	AssetID uint64 `json:"assetId"`
}

type deedApproveParams struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
	AssetID  uint64 `json:"assetId"`
}

type deedItemParams struct {
	AssetID uint64 `json:"assetId"`
}

func (s *Server) handleTokenMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params tokenMintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	owner, err := parseBech32Address(params.Owner)
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
	err = s.tokens.Mint(owner, amount)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"minted": true})
	return nil
}

func (s *Server) handleTokenApprove(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params tokenApproveParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	spender, err := parseBech32Address(params.Spender)
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
	err = s.tokens.Approve(owner, spender, amount)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"approved": true})
	return nil
}

func (s *Server) handleTokenBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	var params tokenBalanceParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	balance, err := s.tokens.BalanceOf(owner)
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
	return nil
}

func (s *Server) handleDeedMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params deedMintParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	s.mu.Lock()
	err = s.deeds.Mint(owner, params.AssetID)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"minted": true})
	return nil
}

func (s *Server) handleDeedApprove(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return errors.New(authErr.Message)
	}
	var params deedApproveParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	owner, err := parseBech32Address(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	operator, err := parseBech32Address(params.Operator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	s.mu.Lock()
	err = s.deeds.Approve(owner, operator, params.AssetID)
	s.mu.Unlock()
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"approved": true})
	return nil
}

func (s *Server) handleDeedOwnerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	var params deedItemParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return err
	}
	owner, err := s.deeds.OwnerOf(params.AssetID)
	if err != nil {
		return writeEscrowError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]string{"owner": formatAddress(owner)})
	return nil
}
