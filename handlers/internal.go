package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"payments-authorizenet/database"
	"payments-authorizenet/logger"
	"payments-authorizenet/middleware"
	"payments-authorizenet/models"
	"payments-authorizenet/queue"
	"payments-authorizenet/services/payment"
	"payments-authorizenet/utils"
)

type paymentRepository interface {
	paymentFinder
	CreatePayment(ctx context.Context, p *models.Payment) error
}

type refundQueue interface {
	EnqueueRefund(ctx context.Context, paymentToken string) (*queue.Job, error)
}

// InternalHandler serves the JWT-protected API used by the merchant backend.
type InternalHandler struct {
	payments paymentRepository
	jobs     refundQueue
	baseURL  string
	log      *slog.Logger
}

func NewInternalHandler(payments paymentRepository, jobs refundQueue, baseURL string) *InternalHandler {
	return &InternalHandler{
		payments: payments,
		jobs:     jobs,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      logger.WithComponent("internal_handler"),
	}
}

func (h *InternalHandler) Register(r *mux.Router) {
	r.HandleFunc("/payments", h.CreatePayment).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/payments/{token}", h.GetPayment).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/payments/{token}/refund", h.RefundPayment).Methods(http.MethodPost, http.MethodOptions)
}

type createPaymentResponse struct {
	Payment    *models.Payment `json:"payment"`
	PaymentURL string          `json:"payment_url"`
}

func (h *InternalHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	p := &models.Payment{
		Token:            uuid.NewString(),
		Variant:          payment.Variant,
		Status:           models.PaymentStatusWaiting,
		Total:            utils.Round(req.Total),
		Currency:         strings.ToUpper(req.Currency),
		Description:      req.Description,
		BillingFirstName: req.BillingFirstName,
		BillingLastName:  req.BillingLastName,
		SuccessURL:       req.SuccessURL,
		FailureURL:       req.FailureURL,
	}
	if p.SuccessURL == "" {
		p.SuccessURL = h.baseURL + successPath(p)
	}
	if p.FailureURL == "" {
		p.FailureURL = h.baseURL + failurePath(p)
	}

	if err := h.payments.CreatePayment(r.Context(), p); err != nil {
		h.log.Error("failed to create payment", "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to create payment")
		return
	}

	caller := ""
	if info := middleware.ServiceFromContext(r.Context()); info != nil {
		caller = info.Service
	}
	h.log.Info("payment created", "payment_id", p.ID, "service", caller)

	utils.SendJSON(w, http.StatusCreated, models.APIResponse{
		Status: "success",
		Data: createPaymentResponse{
			Payment:    p,
			PaymentURL: h.baseURL + paymentPath(p),
		},
	})
}

func (h *InternalHandler) load(w http.ResponseWriter, r *http.Request) (*models.Payment, bool) {
	token := mux.Vars(r)["token"]
	p, err := h.payments.GetPaymentByToken(r.Context(), token)
	if err == nil {
		return p, true
	}
	if errors.Is(err, database.ErrPaymentNotFound) {
		utils.SendErrorResponse(w, http.StatusNotFound, "Payment not found")
		return nil, false
	}
	h.log.Error("failed to load payment", "token", token, "error", err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to load payment")
	return nil, false
}

func (h *InternalHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{Status: "success", Data: p})
}

// RefundPayment queues a void or subscription cancel for a confirmed payment.
func (h *InternalHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}

	switch p.Status {
	case models.PaymentStatusRefunded:
		utils.SendSuccessResponse(w, models.APIResponse{
			Status:  "success",
			Message: "Payment already refunded",
			Data:    models.NewPaymentStatusResponse(p),
		})
		return
	case models.PaymentStatusConfirmed:
	default:
		utils.SendErrorResponse(w, http.StatusConflict, "Only confirmed payments can be refunded")
		return
	}

	job, err := h.jobs.EnqueueRefund(r.Context(), p.Token)
	if err != nil {
		h.log.Error("failed to enqueue refund", "payment_id", p.ID, "error", err)
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, "Failed to schedule refund")
		return
	}

	utils.SendJSON(w, http.StatusAccepted, models.APIResponse{
		Status:  "success",
		Message: "Refund scheduled",
		Data:    map[string]string{"job_id": job.ID, "token": p.Token},
	})
}
