package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eugenenazirov/knapsack/internal/knapsack"
	"github.com/eugenenazirov/knapsack/internal/storage"
	"github.com/eugenenazirov/knapsack/pkg/metrics"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const defaultMaxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

var errTrailingData = errors.New("unexpected data after JSON payload")

// Handler wires the solver, limits storage and metrics into HTTP handlers.
type Handler struct {
	storage   storage.Storage
	newSolver func(knapsack.Limits) knapsack.Solver
	metrics   *metrics.Manager
	logger    *zap.Logger

	clock        func() time.Time
	maxBodyBytes int64

	mu              sync.RWMutex
	limitsUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithMetrics records solve and HTTP metrics on the given manager.
func WithMetrics(m *metrics.Manager) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithSolverFactory overrides how a solver is built from the current limits.
func WithSolverFactory(factory func(knapsack.Limits) knapsack.Solver) HandlerOption {
	return func(h *Handler) {
		if factory != nil {
			h.newSolver = factory
		}
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage: store,
		newSolver: func(limits knapsack.Limits) knapsack.Solver {
			return knapsack.New(knapsack.WithLimits(limits))
		},
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.limitsUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetLimits(w http.ResponseWriter, r *http.Request) {
	_ = r
	limits, err := h.storage.GetLimits()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, limitsResponse{
		Limits:    limits,
		UpdatedAt: h.currentLimitsUpdatedAt(),
	})
}

func (h *Handler) handlePutLimits(w http.ResponseWriter, r *http.Request) {
	var req knapsack.Limits
	if err := h.decode(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.storage.SetLimits(req); err != nil {
		if errors.Is(err, storage.ErrInvalidLimits) {
			writeError(w, http.StatusBadRequest, "Invalid limits", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markLimitsUpdated()
	h.logger.Info("solver limits updated",
		zap.Int("width", req.Width),
		zap.Int64("max_capacity", req.MaxCapacity),
		zap.Int64("max_cells", req.MaxCells),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	limits, err := h.storage.GetLimits()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, limitsResponse{
		Limits:    limits,
		UpdatedAt: h.currentLimitsUpdatedAt(),
		Message:   "Limits updated successfully",
	})
}

// handleSolveTotal answers with the selected value total only.
func (h *Handler) handleSolveTotal(w http.ResponseWriter, r *http.Request) {
	res, ok := h.solve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Kids: res.selection.TotalValue})
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	res, ok := h.solve(w, r)
	if !ok {
		return
	}

	selected := slices.Clone(res.selection.Indices)
	slices.Sort(selected)

	writeJSON(w, http.StatusOK, solveResponse{
		Kids:              res.selection.TotalValue,
		TotalWeight:       res.selection.TotalWeight,
		Capacity:          res.capacity,
		Selected:          selected,
		CalculationTimeMs: res.elapsed.Milliseconds(),
	})
}

type solveResult struct {
	selection knapsack.Selection
	capacity  int64
	elapsed   time.Duration
}

// solve parses and validates the request, runs the solver and writes any error response.
// The solver is never invoked with malformed input.
func (h *Handler) solve(w http.ResponseWriter, r *http.Request) (solveResult, bool) {
	var req solveRequest
	if err := h.decode(w, r, &req); err != nil {
		if literal, ok := integerOutOfRange(err); ok {
			h.rejectSolve(w, r, fmt.Errorf("%w: %s does not fit in 64 bits", knapsack.ErrArithmeticOverflow, literal), 0)
			return solveResult{}, false
		}
		writeDecodeError(w, err)
		return solveResult{}, false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "kids, weight and capacity are required")
		return solveResult{}, false
	}

	capacity := *req.Capacity
	if capacity < 0 {
		h.rejectSolve(w, r, fmt.Errorf("%w: got %d", knapsack.ErrInvalidCapacity, capacity), 0)
		return solveResult{}, false
	}
	items, err := knapsack.Pair(req.Kids, req.Weight)
	if err != nil {
		h.rejectSolve(w, r, err, 0)
		return solveResult{}, false
	}

	limits, err := h.storage.GetLimits()
	if err != nil {
		writeInternalError(w, err)
		return solveResult{}, false
	}

	start := time.Now()
	selection, err := h.newSolver(limits).Solve(items, capacity)
	elapsed := time.Since(start)

	if err != nil {
		h.rejectSolve(w, r, err, elapsed)
		return solveResult{}, false
	}

	if h.metrics != nil {
		h.metrics.RecordSolve(metrics.OutcomeOK, elapsed)
		h.metrics.RecordTableCells((int64(len(items)) + 1) * (capacity + 1))
		h.metrics.RecordSelection(selection.Len())
	}
	h.logger.Debug("solve completed",
		zap.Int("items", len(items)),
		zap.Int64("capacity", capacity),
		zap.Int64("total_value", selection.TotalValue),
		zap.Int64("total_weight", selection.TotalWeight),
		zap.Duration("duration", elapsed),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	return solveResult{selection: selection, capacity: capacity, elapsed: elapsed}, true
}

// rejectSolve maps a solve error to a client response. Details such as the
// overflow position are logged, not returned.
func (h *Handler) rejectSolve(w http.ResponseWriter, r *http.Request, err error, elapsed time.Duration) {
	outcome := outcomeFor(err)
	if h.metrics != nil {
		h.metrics.RecordSolve(outcome, elapsed)
	}
	h.logger.Warn("solve rejected",
		zap.String("outcome", outcome),
		zap.Error(err),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	switch {
	case errors.Is(err, knapsack.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, "Invalid capacity", knapsack.ErrInvalidCapacity.Error())
	case errors.Is(err, knapsack.ErrInvalidWeight):
		writeError(w, http.StatusBadRequest, "Invalid weight", knapsack.ErrInvalidWeight.Error())
	case errors.Is(err, knapsack.ErrMismatchedInput):
		writeError(w, http.StatusBadRequest, "Mismatched input", knapsack.ErrMismatchedInput.Error())
	case errors.Is(err, knapsack.ErrArithmeticOverflow):
		writeError(w, http.StatusUnprocessableEntity, "Arithmetic overflow",
			"values, weights or the total do not fit the configured integer width",
			"Reduce the values or raise the width via PUT /api/limits")
	case errors.Is(err, knapsack.ErrResourceExhausted):
		writeError(w, http.StatusRequestEntityTooLarge, "Problem too large", knapsack.ErrResourceExhausted.Error(),
			"Reduce the number of items or the capacity")
	default:
		writeInternalError(w, err)
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, knapsack.ErrInvalidCapacity):
		return metrics.OutcomeInvalidCapacity
	case errors.Is(err, knapsack.ErrInvalidWeight):
		return metrics.OutcomeInvalidWeight
	case errors.Is(err, knapsack.ErrMismatchedInput):
		return metrics.OutcomeMismatchedInput
	case errors.Is(err, knapsack.ErrArithmeticOverflow):
		return metrics.OutcomeOverflow
	case errors.Is(err, knapsack.ErrResourceExhausted):
		return metrics.OutcomeResourceExhausted
	default:
		return metrics.OutcomeError
	}
}

// decode reads exactly one JSON value from the size-capped body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	switch err := dec.Decode(&struct{}{}); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errTrailingData
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errTrailingData
	}
}

// integerOutOfRange reports whether err is an integer literal that does not
// fit the int64 field it was decoded into.
func integerOutOfRange(err error) (string, bool) {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Type == nil || typeErr.Type.Kind() != reflect.Int64 {
		return "", false
	}
	literal, ok := strings.CutPrefix(typeErr.Value, "number ")
	if !ok {
		return "", false
	}
	digits := strings.TrimPrefix(literal, "-")
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return "", false
	}
	return literal, true
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Payload too large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	if errors.Is(err, errTrailingData) {
		writeError(w, http.StatusBadRequest, "Invalid request", errTrailingData.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
}

func (h *Handler) currentLimitsUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.limitsUpdatedAt
}

func (h *Handler) markLimitsUpdated() {
	h.mu.Lock()
	h.limitsUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type solveRequest struct {
	Kids     []int64 `json:"kids" validate:"required"`
	Weight   []int64 `json:"weight" validate:"required"`
	Capacity *int64  `json:"capacity" validate:"required"`
}

type totalResponse struct {
	Kids int64 `json:"kids"`
}

type solveResponse struct {
	Kids              int64 `json:"kids"`
	TotalWeight       int64 `json:"totalWeight"`
	Capacity          int64 `json:"capacity"`
	Selected          []int `json:"selected"`
	CalculationTimeMs int64 `json:"calculationTimeMs"`
}

type limitsResponse struct {
	knapsack.Limits
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
