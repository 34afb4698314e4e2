package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"payment-record-service/internal/core/domain"
	"payment-record-service/internal/core/ports"
	"payment-record-service/internal/observability"
)

// PaymentHandler translates HTTP requests into service calls and maps
// the service's error taxonomy onto status codes.
type PaymentHandler struct {
	service ports.PaymentService
	logger  *slog.Logger
}

func NewPaymentHandler(service ports.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

type createPaymentRequest struct {
	CardNumber string           `json:"card_number"`
	Amount     *decimal.Decimal `json:"amount"`
	Name       string           `json:"name"`
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

type paymentView struct {
	ID         int64           `json:"id"`
	CardNumber string          `json:"card_number"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
	Name       string          `json:"name"`
	IsDeleted  bool            `json:"is_deleted"`
}

// activePaymentView is the lightweight projection used by the active
// payments listing. Deliberately omits name and the deleted flag.
type activePaymentView struct {
	ID         int64           `json:"id"`
	CardNumber string          `json:"card_number"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
}

func toPaymentView(p domain.Payment) paymentView {
	return paymentView{
		ID:         p.ID,
		CardNumber: p.CardNumber,
		Amount:     p.Amount,
		Timestamp:  p.Timestamp,
		Name:       p.Name,
		IsDeleted:  p.IsDeleted,
	}
}

// HandleCreatePayment accepts a new payment record.
func (h *PaymentHandler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	candidate := domain.Payment{
		CardNumber: req.CardNumber,
		Name:       req.Name,
	}
	// A missing amount decodes to nil, the zero value fails validation
	// downstream with the same message a non-positive amount gets.
	if req.Amount != nil {
		candidate.Amount = *req.Amount
	}

	payment, err := h.service.Accept(r.Context(), candidate)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	observability.PaymentsAccepted.Inc()
	writeJSON(w, h.logger, http.StatusCreated, apiResponse{
		Data:    toPaymentView(payment),
		Message: "Payment processed successfully! Your transaction is now complete.",
	})
}

// HandleStopPayment soft-deletes a payment within the stop window.
func (h *PaymentHandler) HandleStopPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, h.logger, "invalid payment id", http.StatusBadRequest)
		return
	}

	stopped, err := h.service.Stop(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	observability.PaymentsStopped.Inc()
	writeJSON(w, h.logger, http.StatusOK, apiResponse{
		Data:    stopped,
		Message: "Payment has been successfully stopped.",
	})
}

// HandleGetPayment returns a single payment by id, deleted or not.
func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, h.logger, "invalid payment id", http.StatusBadRequest)
		return
	}

	payment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, apiResponse{
		Data:    toPaymentView(payment),
		Message: "Payment retrieved successfully.",
	})
}

// HandleListPayments lists every payment for a card, deleted included.
// An empty result is a successful, empty response at this boundary.
func (h *PaymentHandler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	cardNumber := chi.URLParam(r, "cardNumber")

	payments, err := h.service.ListByCard(r.Context(), cardNumber)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, h.logger, http.StatusOK, apiResponse{
				Data:    []paymentView{},
				Message: "No payments found for the provided card number.",
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}

	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, toPaymentView(p))
	}
	writeJSON(w, h.logger, http.StatusOK, apiResponse{
		Data:    views,
		Message: "Payments retrieved successfully.",
	})
}

// HandleListActivePayments lists the card's non-deleted payments as the
// lightweight projection. Same empty-result mapping as the full listing.
func (h *PaymentHandler) HandleListActivePayments(w http.ResponseWriter, r *http.Request) {
	cardNumber := chi.URLParam(r, "cardNumber")

	payments, err := h.service.ListActiveByCard(r.Context(), cardNumber)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			writeJSON(w, h.logger, http.StatusOK, apiResponse{
				Data:    []activePaymentView{},
				Message: "No active payments found for the provided card number.",
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}

	views := make([]activePaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, activePaymentView{
			ID:         p.ID,
			CardNumber: p.CardNumber,
			Amount:     p.Amount,
			Timestamp:  p.Timestamp,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, apiResponse{
		Data:    views,
		Message: "Active payments retrieved successfully.",
	})
}

func (h *PaymentHandler) writeServiceError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, h.logger, ve.Reason, http.StatusUnprocessableEntity)

	case errors.As(err, &nf):
		writeJSONError(w, h.logger, nf.Reason, http.StatusNotFound)

	case errors.Is(err, domain.ErrStorageUnavailable):
		h.logger.Warn("temporary failure in payment store", "error", err)
		writeJSONError(w, h.logger, "service temporarily unavailable", http.StatusServiceUnavailable)

	default:
		h.logger.Error("unexpected error in payment handler", "error", err)
		writeJSONError(w, h.logger, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write json response", "error", err)
	}
}

// writeJSONError sends an error payload in the common envelope shape.
func writeJSONError(w http.ResponseWriter, logger *slog.Logger, message string, status int) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}
