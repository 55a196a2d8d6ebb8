package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"paystream/crypto"
	"paystream/native/streams"
)

type streamCreateParams struct {
	Caller  string `json:"caller"`
	Builder string `json:"builder"`
	Cap     string `json:"cap"`
	Asset   string `json:"asset"`
}

type streamUpdateCapParams struct {
	Caller  string `json:"caller"`
	Builder string `json:"builder"`
	NewCap  string `json:"newCap"`
}

type streamAddBatchParams struct {
	Caller   string   `json:"caller"`
	Builders []string `json:"builders"`
	Caps     []string `json:"caps"`
	Assets   []string `json:"assets"`
}

type streamWithdrawParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Memo   string `json:"memo,omitempty"`
}

type streamQueryParams struct {
	Builder string `json:"builder"`
}

type depositParams struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type balanceParams struct {
	Asset string `json:"asset"`
}

type ownershipTransferParams struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type ownershipRenounceParams struct {
	Caller string `json:"caller"`
}

type streamResult struct {
	Builder string `json:"builder"`
	Cap     string `json:"cap"`
	Last    int64  `json:"last"`
	Asset   string `json:"asset"`
}

type withdrawalResult struct {
	ID        string `json:"id"`
	Builder   string `json:"builder"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset"`
	Memo      string `json:"memo,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type unlockedResult struct {
	Builder  string `json:"builder"`
	Unlocked string `json:"unlocked"`
}

type balanceResult struct {
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type ownerResult struct {
	Owner string `json:"owner,omitempty"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func decodeAddr(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

func formatAddr(addr [20]byte) string {
	return crypto.NewAddress(crypto.PayPrefix, addr).String()
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount is required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	if amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	return amount, nil
}

// parseAsset accepts the "native" sentinel or a 0x-prefixed 20-byte token
// contract address.
func parseAsset(value string) (streams.Asset, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" || trimmed == "native" {
		return streams.NativeAsset, nil
	}
	trimmed = strings.TrimPrefix(trimmed, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return streams.NativeAsset, errors.New("asset must be \"native\" or a 0x-prefixed address")
	}
	if len(raw) != 20 {
		return streams.NativeAsset, errors.New("asset address must be 20 bytes")
	}
	var asset streams.Asset
	copy(asset[:], raw)
	if asset.IsNative() {
		return streams.NativeAsset, errors.New("zero address is reserved for the native asset")
	}
	return asset, nil
}

func formatStream(stream *streams.Stream) streamResult {
	cap := "0"
	if stream.Cap != nil {
		cap = stream.Cap.String()
	}
	return streamResult{
		Builder: formatAddr(stream.Builder),
		Cap:     cap,
		Last:    stream.Last,
		Asset:   stream.Asset.String(),
	}
}

func engineErrorCode(err error) int {
	if errors.Is(err, streams.ErrUnauthorized) {
		return codeUnauthorized
	}
	return codeInvalidParams
}

func (s *Server) handleStreamCreate(w http.ResponseWriter, req *RPCRequest, ifAbsent bool) {
	var params streamCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddr(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	builder, err := decodeAddr(params.Builder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid builder address", err.Error())
		return
	}
	cap, err := parseAmount(params.Cap)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	asset, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var stream *streams.Stream
	if ifAbsent {
		stream, err = s.engine.CreateStreamIfAbsent(caller, builder, cap, asset)
	} else {
		stream, err = s.engine.CreateStream(caller, builder, cap, asset)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, engineErrorCode(err), "failed to create stream", err.Error())
		return
	}
	writeResult(w, req.ID, formatStream(stream))
}

func (s *Server) handleStreamUpdateCap(w http.ResponseWriter, req *RPCRequest) {
	var params streamUpdateCapParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddr(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	builder, err := decodeAddr(params.Builder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid builder address", err.Error())
		return
	}
	newCap, err := parseAmount(params.NewCap)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	stream, err := s.engine.UpdateCap(caller, builder, newCap)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, engineErrorCode(err), "failed to update cap", err.Error())
		return
	}
	writeResult(w, req.ID, formatStream(stream))
}

func (s *Server) handleStreamAddBatch(w http.ResponseWriter, req *RPCRequest) {
	var params streamAddBatchParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddr(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	// Shape validation happens in the engine so a length mismatch is
	// rejected atomically, but addresses and amounts must parse first.
	builders := make([][20]byte, 0, len(params.Builders))
	for _, raw := range params.Builders {
		builder, err := decodeAddr(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid builder address", err.Error())
			return
		}
		builders = append(builders, builder)
	}
	caps := make([]*big.Int, 0, len(params.Caps))
	for _, raw := range params.Caps {
		cap, err := parseAmount(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		caps = append(caps, cap)
	}
	assets := make([]streams.Asset, 0, len(params.Assets))
	for _, raw := range params.Assets {
		asset, err := parseAsset(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		assets = append(assets, asset)
	}
	created, err := s.engine.AddBatch(caller, builders, caps, assets)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, engineErrorCode(err), "failed to add batch", err.Error())
		return
	}
	results := make([]streamResult, 0, len(created))
	for _, stream := range created {
		results = append(results, formatStream(stream))
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleStreamWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params streamWithdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddr(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.engine.Withdraw(caller, amount, params.Memo)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, engineErrorCode(err), "failed to withdraw", err.Error())
		return
	}
	writeResult(w, req.ID, withdrawalResult{
		ID:        receipt.ID,
		Builder:   formatAddr(receipt.Builder),
		Amount:    receipt.Amount.String(),
		Asset:     receipt.Asset.String(),
		Memo:      receipt.Memo,
		Timestamp: receipt.Timestamp,
	})
}

func (s *Server) handleStreamGet(w http.ResponseWriter, req *RPCRequest) {
	var params streamQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	builder, err := decodeAddr(params.Builder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid builder address", err.Error())
		return
	}
	stream, err := s.engine.StreamOf(builder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load stream", err.Error())
		return
	}
	writeResult(w, req.ID, formatStream(stream))
}

func (s *Server) handleStreamUnlocked(w http.ResponseWriter, req *RPCRequest) {
	var params streamQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	builder, err := decodeAddr(params.Builder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid builder address", err.Error())
		return
	}
	unlocked, err := s.engine.UnlockedOf(builder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to compute entitlement", err.Error())
		return
	}
	writeResult(w, req.ID, unlockedResult{Builder: params.Builder, Unlocked: unlocked.String()})
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params depositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	asset, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.Deposit(asset, amount); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeServerError, "failed to deposit", err.Error())
		return
	}
	balance, err := s.ledger.BalanceOf(asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load balance", err.Error())
		return
	}
	writeResult(w, req.ID, balanceResult{Asset: asset.String(), Balance: balance.String()})
}

func (s *Server) handleBalance(w http.ResponseWriter, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	asset, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.ledger.BalanceOf(asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load balance", err.Error())
		return
	}
	writeResult(w, req.ID, balanceResult{Asset: asset.String(), Balance: balance.String()})
}

func (s *Server) handleOwner(w http.ResponseWriter, req *RPCRequest) {
	owners := s.engine.Ownership()
	if owners == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "ownership not configured", nil)
		return
	}
	owner, err := owners.Owner()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load owner", err.Error())
		return
	}
	result := ownerResult{}
	if owner != ([20]byte{}) {
		result.Owner = formatAddr(owner)
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, req *RPCRequest) {
	var params ownershipTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddr(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	newOwner, err := decodeAddr(params.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid newOwner address", err.Error())
		return
	}
	if err := s.engine.TransferOwnership(caller, newOwner); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, engineErrorCode(err), "failed to transfer ownership", err.Error())
		return
	}
	writeResult(w, req.ID, ownerResult{Owner: params.NewOwner})
}

func (s *Server) handleRenounceOwnership(w http.ResponseWriter, req *RPCRequest) {
	var params ownershipRenounceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := decodeAddr(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.RenounceOwnership(caller); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, engineErrorCode(err), "failed to renounce ownership", err.Error())
		return
	}
	writeResult(w, req.ID, ownerResult{})
}
