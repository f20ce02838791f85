// Package web is a thin JSON adapter over the wallet state machine and the
// read-side projections. No business logic lives here: handlers decode
// input, call one state-machine operation and map its error to a status.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvvsdvc5-arch/chuangzuo/internal"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/ledger"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/metrics"
)

// Server exposes the demo user's wallet over HTTP.
type Server struct {
	addr   string
	userID string
	sm     *ledger.StateMachine
	runner *internal.Runner
	clock  domain.Clock
	logger *zap.Logger
}

// NewServer creates the HTTP adapter.
func NewServer(addr, userID string, sm *ledger.StateMachine, runner *internal.Runner, clock domain.Clock, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, userID: userID, sm: sm, runner: runner, clock: clock, logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", s.handleWallet)
	mux.HandleFunc("GET /ledger", s.handleLedger)
	mux.HandleFunc("GET /orders", s.handleOrders)
	mux.HandleFunc("GET /metrics/summary", s.handleSummary)
	mux.HandleFunc("POST /deposits", s.handleDeposit)
	mux.HandleFunc("POST /invest", s.handleInvest)
	mux.HandleFunc("POST /invest/stop", s.handleStop)
	mux.HandleFunc("POST /payout", s.handlePayout)
	mux.HandleFunc("POST /withdrawals", s.handleWithdraw)
	mux.HandleFunc("POST /exchange", s.handleExchange)
	mux.HandleFunc("POST /transfer", s.handleTransfer)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type amountRequest struct {
	// Amount is in major units, e.g. "150.25".
	Amount string `json:"amount"`
}

type exchangeRequest struct {
	Asset     string `json:"asset"`
	Direction string `json:"direction"` // "to_usdt" or "from_usdt"
	Amount    string `json:"amount"`
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.sm.Wallet(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	assets, err := s.sm.Assets(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wallet": wallet,
		"assets": assets,
	})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sm.Ledger(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.runner.Running(),
		"plan":    s.runner.Plan(),
		"orders":  s.runner.RecentOrders(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	entries, err := s.sm.Ledger(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	wallet, err := s.sm.Wallet(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.Summarize(entries, s.clock, wallet.PendingMinor))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	amountMinor, err := decodeAmountMinor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sm.Deposit(r.Context(), s.userID, amountMinor); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	amountMinor, err := decodeAmountMinor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// runs outlive the request: tie the loop to the server's lifetime
	if err := s.runner.Start(context.WithoutCancel(r.Context()), amountMinor); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plan": s.runner.Plan()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.runner.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePayout(w http.ResponseWriter, r *http.Request) {
	paid, err := s.sm.Payout(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "paid_minor": paid})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(domain.ErrInvalidInput, "malformed request body"))
		return
	}

	if req.Asset == "" {
		amountMinor, err := parseAmountMinor(req.Amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.sm.WithdrawFiat(r.Context(), s.userID, amountMinor); err != nil {
			s.writeError(w, err)
			return
		}
	} else {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.sm.WithdrawCrypto(r.Context(), s.userID, req.Asset, amount); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(domain.ErrInvalidInput, "malformed request body"))
		return
	}

	switch req.Direction {
	case "to_usdt":
		amount, err := parseAmount(req.Amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		credit, err := s.sm.ExchangeToUSDT(r.Context(), s.userID, req.Asset, amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "credit_minor": credit})
	case "from_usdt":
		amountMinor, err := parseAmountMinor(req.Amount)
		if err != nil {
			s.writeError(w, err)
			return
		}
		bought, err := s.sm.ExchangeFromUSDT(r.Context(), s.userID, req.Asset, amountMinor)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "bought": bought.String()})
	default:
		s.writeError(w, errors.Wrapf(domain.ErrInvalidInput, "unknown direction %q", req.Direction))
	}
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(domain.ErrInvalidInput, "malformed request body"))
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.sm.Transfer(r.Context(), s.userID, req.Recipient, amountMinor); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func decodeAmountMinor(r *http.Request) (int64, error) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, errors.Wrap(domain.ErrInvalidInput, "malformed request body")
	}
	return parseAmountMinor(req.Amount)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrInvalidInput, "amount %q is not a number", raw)
	}
	return amount, nil
}

func parseAmountMinor(raw string) (int64, error) {
	amount, err := parseAmount(raw)
	if err != nil {
		return 0, err
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrBelowMinimum):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{"ok": false, "message": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
