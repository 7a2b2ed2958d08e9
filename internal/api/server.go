package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lhermoso/grid-vault/internal/engine"
	"github.com/lhermoso/grid-vault/internal/fixedpoint"
	"github.com/lhermoso/grid-vault/internal/repository"
	"github.com/lhermoso/grid-vault/internal/stream"
	"github.com/lhermoso/grid-vault/internal/vault"
)

const maxQueryLimit = 1000

type Server struct {
	pool       *pgxpool.Pool
	engine     *engine.Engine
	eventRepo  *repository.EventRepo
	hub        *stream.Hub
	httpServer *http.Server
	apiKey     string
}

func NewServer(pool *pgxpool.Pool, eng *engine.Engine, events *repository.EventRepo, hub *stream.Hub, port int, apiKey, corsOrigin string) *Server {
	s := &Server{
		pool:      pool,
		engine:    eng,
		eventRepo: events,
		hub:       hub,
		apiKey:    apiKey,
	}

	mux := http.NewServeMux()

	// Protocol lifecycle
	mux.HandleFunc("POST /v1/protocol/initialize", s.handleInitialize)
	mux.HandleFunc("POST /v1/protocol/pause", s.handlePause)
	mux.HandleFunc("POST /v1/protocol/unpause", s.handleUnpause)
	mux.HandleFunc("GET /v1/protocol/stats", s.handleStats)

	// Positions & share ledger
	mux.HandleFunc("POST /v1/positions", s.handleCreatePosition)
	mux.HandleFunc("GET /v1/positions", s.handleListPositions)
	mux.HandleFunc("GET /v1/positions/{owner}", s.handleGetPosition)
	mux.HandleFunc("GET /v1/positions/{owner}/balance", s.handleBalance)
	mux.HandleFunc("POST /v1/positions/{owner}/deposit", s.handleDeposit)
	mux.HandleFunc("POST /v1/positions/{owner}/withdraw", s.handleWithdraw)

	// Deployment lifecycle & valuation
	mux.HandleFunc("POST /v1/trading/deploy", s.handleDeploy)
	mux.HandleFunc("POST /v1/trading/return", s.handleReturn)
	mux.HandleFunc("POST /v1/trading/valuation", s.handleValuation)

	// Fees
	mux.HandleFunc("POST /v1/fees/sweep", s.handleSweepFees)

	// Event log & live stream
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	fmt.Printf("[API] Vault API server started on http://localhost%s\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- request helpers ---

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeVaultError maps the accounting error taxonomy to HTTP statuses.
func writeVaultError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrAlreadyInitialized),
		errors.Is(err, vault.ErrNotInitialized),
		errors.Is(err, vault.ErrPaused),
		errors.Is(err, vault.ErrPositionExists),
		errors.Is(err, vault.ErrNothingToSweep),
		errors.Is(err, vault.ErrUndefinedNav):
		return http.StatusConflict
	case errors.Is(err, vault.ErrInvalidFeeBps),
		errors.Is(err, vault.ErrZeroAmount),
		errors.Is(err, vault.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrSlippageExceeded),
		errors.Is(err, vault.ErrInsufficientShares),
		errors.Is(err, vault.ErrInsufficientLiquidity),
		errors.Is(err, vault.ErrExceedsDeploymentLimit),
		errors.Is(err, vault.ErrReturnExceedsDeployed),
		errors.Is(err, vault.ErrInvalidValuation),
		errors.Is(err, vault.ErrNonMonotonicValuation),
		errors.Is(err, fixedpoint.ErrOverflow),
		errors.Is(err, fixedpoint.ErrUnderflow),
		errors.Is(err, fixedpoint.ErrDivideByZero):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
