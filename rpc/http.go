package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"tradevault/crypto"
	"tradevault/native/deed"
	"tradevault/native/escrow"
	"tradevault/native/token"
	"tradevault/observability"
	"tradevault/observability/logging"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rpcTokenEnv     = "TRADEVAULT_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the escrow node over JSON-RPC 2.0. A single mutex serializes
// every mutating action so no two actions interleave partially, matching the
// execution model the escrow engine assumes.
type Server struct {
	engine *escrow.Engine
	tokens *token.Ledger
	deeds  *deed.Ledger
	logger *slog.Logger

	mu        sync.Mutex
	authToken string
}

// NewServer wires the RPC surface to the engine and both ledgers. The bearer
// token is read from TRADEVAULT_RPC_TOKEN; an empty token disables auth.
func NewServer(engine *escrow.Engine, tokens *token.Ledger, deeds *deed.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		tokens:    tokens,
		deeds:     deeds,
		logger:    logger,
		authToken: strings.TrimSpace(os.Getenv(rpcTokenEnv)),
	}
}

// Start blocks serving the RPC endpoint on addr.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		s.logger.Warn("rejected bearer token",
			logging.MaskField("token", supplied),
			slog.String("addr", r.RemoteAddr),
		)
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid bearer token"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "invalid_request", "POST required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "invalid_request", "request body too large")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "jsonrpc must be 2.0")
		return
	}

	module := "escrow"
	if idx := strings.IndexByte(req.Method, '_'); idx > 0 {
		module = req.Method[:idx]
	}
	start := time.Now()
	handlerErr := s.dispatch(w, r, &req)
	observability.ModuleMetrics().Observe(module, req.Method, start, handlerErr)
}

// dispatch routes the request and reports whether the handler wrote an error,
// for metrics only. Response writing happens inside the handlers.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) error {
	handlers := map[string]func(http.ResponseWriter, *http.Request, *RPCRequest) error{
		"escrow_createTrade":      s.handleCreateTrade,
		"escrow_stakeAsset":       s.handleStakeAsset,
		"escrow_stakePayment":     s.handleStakePayment,
		"escrow_confirmDelivery":  s.handleConfirmDelivery,
		"escrow_unstakePayment":   s.handleUnstakePayment,
		"escrow_unstakeAsset":     s.handleUnstakeAsset,
		"escrow_cancel":           s.handleCancelByMediator,
		"escrow_getTrade":         s.handleGetTrade,
		"escrow_registerMediator": s.handleRegisterMediator,
		"escrow_isMediator":       s.handleIsMediator,
		"token_mint":              s.handleTokenMint,
		"token_approve":           s.handleTokenApprove,
		"token_balanceOf":         s.handleTokenBalanceOf,
		"deed_mint":               s.handleDeedMint,
		"deed_approve":            s.handleDeedApprove,
		"deed_ownerOf":            s.handleDeedOwnerOf,
	}
	handler, ok := handlers[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
		return fmt.Errorf("method not found")
	}
	return handler(w, r, req)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseBech32Address(value string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.TVPrefix, addr[:]).String()
}
