// Package httpapi exposes the ledger and the price source registry over HTTP.
// Amounts cross the wire as decimal strings: native-unit integers for asset
// quantities, formatted common-unit values for totals and caps.
package httpapi

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rustyeddy/custodian/ledger"
	"github.com/rustyeddy/custodian/oracle"
	"github.com/rustyeddy/custodian/valuation"
	"github.com/rustyeddy/custodian/vault"
)

// SourceResolver turns a source spec string ("static:1.00@8") into a live
// price source. The serve command supplies the same resolver used to restore
// persisted descriptors.
type SourceResolver func(spec string) (oracle.Source, error)

type Server struct {
	ledger    *ledger.Ledger
	registry  *oracle.Registry
	resolve   SourceResolver
	precision uint32
}

func NewServer(l *ledger.Ledger, reg *oracle.Registry, resolve SourceResolver, precision uint32) *Server {
	return &Server{ledger: l, registry: reg, resolve: resolve, precision: precision}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/deposits", s.handleDeposit)
	r.Post("/withdrawals", s.handleWithdraw)
	r.Get("/total", s.handleTotal)
	r.Get("/vaults/{user}/{asset}", s.handleGetVault)

	r.Route("/price-sources", func(r chi.Router) {
		r.Post("/", s.handleRegisterSource)
		r.Get("/{asset}", s.handleGetSource)
	})

	return r
}

type operationRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"` // native units, decimal integer string
}

type vaultResponse struct {
	User            string `json:"user"`
	Asset           string `json:"asset"`
	Balance         string `json:"balance"`
	DepositCount    uint64 `json:"deposit_count"`
	WithdrawalCount uint64 `json:"withdrawal_count"`
}

func toVaultResponse(v vault.Vault) vaultResponse {
	return vaultResponse{
		User:            v.User,
		Asset:           v.Asset,
		Balance:         v.Balance.String(),
		DepositCount:    v.DepositCount,
		WithdrawalCount: v.WithdrawalCount,
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeOperation(w, r)
	if !ok {
		return
	}

	v, err := s.ledger.Deposit(r.Context(), req.User, req.Asset, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVaultResponse(v))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := s.decodeOperation(w, r)
	if !ok {
		return
	}

	v, err := s.ledger.Withdraw(r.Context(), req.User, req.Asset, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(v))
}

func (s *Server) decodeOperation(w http.ResponseWriter, r *http.Request) (operationRequest, *big.Int, bool) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return req, nil, false
	}
	if req.User == "" || req.Asset == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "user and asset are required")
		return req, nil, false
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "amount must be a decimal integer string")
		return req, nil, false
	}
	return req, amount, true
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	total := s.ledger.TotalAccountedValue()
	writeJSON(w, http.StatusOK, map[string]string{
		"total":          valuation.FormatCommon(total, s.precision),
		"custody_cap":    valuation.FormatCommon(s.ledger.CustodyCap(), s.precision),
		"withdrawal_cap": valuation.FormatCommon(s.ledger.WithdrawalCap(), s.precision),
	})
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	asset := chi.URLParam(r, "asset")

	v, err := s.ledger.Vault(user, asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(v))
}

type registerSourceRequest struct {
	Asset          string `json:"asset"`
	Source         string `json:"source"` // source spec, e.g. "static:1.00@8"
	NativeDecimals uint32 `json:"native_decimals"`
}

type sourceResponse struct {
	Asset          string `json:"asset"`
	SourceName     string `json:"source_name"`
	NativeDecimals uint32 `json:"native_decimals"`
}

func (s *Server) handleRegisterSource(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get("X-Caller")
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "X-Caller header is required")
		return
	}

	var req registerSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Asset == "" || req.Source == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "asset and source are required")
		return
	}

	src, err := s.resolve(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	err = s.registry.Register(caller, req.Asset, oracle.Descriptor{
		Source:         src,
		SourceName:     req.Source,
		NativeDecimals: req.NativeDecimals,
	})
	if err != nil {
		if errors.Is(err, oracle.ErrUnauthorized) {
			writeError(w, http.StatusForbidden, "unauthorized", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, sourceResponse{
		Asset:          req.Asset,
		SourceName:     req.Source,
		NativeDecimals: req.NativeDecimals,
	})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")

	desc, ok := s.registry.Lookup(asset)
	if !ok {
		writeError(w, http.StatusNotFound, "not_configured", "no price source registered for "+asset)
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse{
		Asset:          asset,
		SourceName:     desc.SourceName,
		NativeDecimals: desc.NativeDecimals,
	})
}

// writeLedgerError maps the ledger error taxonomy onto HTTP statuses so API
// callers can branch on cause without string matching.
func writeLedgerError(w http.ResponseWriter, err error) {
	var (
		insufficient  *ledger.InsufficientBalanceError
		custodyCap    *ledger.CustodyCapError
		withdrawalCap *ledger.WithdrawalCapError
	)
	switch {
	case errors.Is(err, ledger.ErrZeroAmount):
		writeError(w, http.StatusBadRequest, "zero_amount", err.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, "insufficient_balance", err.Error())
	case errors.As(err, &custodyCap):
		writeError(w, http.StatusConflict, "custody_cap_exceeded", err.Error())
	case errors.As(err, &withdrawalCap):
		writeError(w, http.StatusConflict, "withdrawal_cap_exceeded", err.Error())
	case errors.Is(err, valuation.ErrAssetNotConfigured):
		writeError(w, http.StatusNotFound, "asset_not_configured", err.Error())
	case errors.Is(err, valuation.ErrInvalidPrice):
		writeError(w, http.StatusBadGateway, "invalid_price", err.Error())
	case errors.Is(err, ledger.ErrTransferFailed):
		writeError(w, http.StatusBadGateway, "transfer_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "error": msg})
}
