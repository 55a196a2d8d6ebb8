package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paystream/core/state"
	"paystream/native/streams"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the stream engine over JSON-RPC 2.0 on a single endpoint,
// with health and metrics side routes.
type Server struct {
	engine    *streams.Engine
	ledger    *state.Manager
	authToken string
	metrics   *serverMetrics
}

// NewServer wires the engine and ledger manager into an RPC server. Mutating
// methods require a bearer token when PAYSTREAM_RPC_TOKEN is set.
func NewServer(engine *streams.Engine, ledger *state.Manager) *Server {
	return &Server{
		engine:    engine,
		ledger:    ledger,
		authToken: strings.TrimSpace(os.Getenv("PAYSTREAM_RPC_TOKEN")),
		metrics:   newServerMetrics(),
	}
}

// Router builds the HTTP handler: the RPC endpoint plus /healthz and
// /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Router())
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

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "bearer token required"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

func mutatingMethod(method string) bool {
	switch method {
	case "streams_create", "streams_createIfAbsent", "streams_updateCap",
		"streams_addBatch", "streams_withdraw", "streams_deposit",
		"streams_transferOwnership", "streams_renounceOwnership":
		return true
	}
	return false
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unable to read request body", err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	defer func() {
		s.metrics.observe(method, time.Since(start))
	}()

	if mutatingMethod(method) {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}

	switch method {
	case "streams_create":
		s.handleStreamCreate(w, req, false)
	case "streams_createIfAbsent":
		s.handleStreamCreate(w, req, true)
	case "streams_updateCap":
		s.handleStreamUpdateCap(w, req)
	case "streams_addBatch":
		s.handleStreamAddBatch(w, req)
	case "streams_withdraw":
		s.handleStreamWithdraw(w, req)
	case "streams_get":
		s.handleStreamGet(w, req)
	case "streams_unlocked":
		s.handleStreamUnlocked(w, req)
	case "streams_deposit":
		s.handleDeposit(w, req)
	case "streams_balance":
		s.handleBalance(w, req)
	case "streams_owner":
		s.handleOwner(w, req)
	case "streams_transferOwnership":
		s.handleTransferOwnership(w, req)
	case "streams_renounceOwnership":
		s.handleRenounceOwnership(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", method), nil)
	}
}
