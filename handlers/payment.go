package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"payments-authorizenet/database"
	"payments-authorizenet/logger"
	"payments-authorizenet/models"
	"payments-authorizenet/services/payment"
	"payments-authorizenet/utils"
)

const (
	sessionName      = "payments"
	flashConfirmed   = "Your payment has been confirmed."
	flashUnavailable = "This payment can no longer be completed."
)

type paymentFinder interface {
	GetPaymentByToken(ctx context.Context, token string) (*models.Payment, error)
}

// PaymentHandler serves the customer-facing payment pages.
type PaymentHandler struct {
	payments paymentFinder
	provider payment.Provider
	sessions sessions.Store
	log      *slog.Logger
}

func NewPaymentHandler(payments paymentFinder, provider payment.Provider, store sessions.Store) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		provider: provider,
		sessions: store,
		log:      logger.WithComponent("payment_handler"),
	}
}

// Register adds the public routes. OPTIONS is listed so preflight requests
// match a route and reach the CORS middleware.
func (h *PaymentHandler) Register(r *mux.Router) {
	r.HandleFunc("/payments/{token}", h.PaymentPage).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/payments/{token}/process", h.ProcessData).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/payments/{token}/success", h.Success).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/payments/{token}/failure", h.Failure).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/payments/{token}", h.Status).Methods(http.MethodGet, http.MethodOptions)
}

func (h *PaymentHandler) loadPayment(w http.ResponseWriter, r *http.Request, asJSON bool) (*models.Payment, bool) {
	token := mux.Vars(r)["token"]
	p, err := h.payments.GetPaymentByToken(r.Context(), token)
	if err == nil {
		return p, true
	}

	status, message := http.StatusInternalServerError, "Failed to load payment"
	if errors.Is(err, database.ErrPaymentNotFound) {
		status, message = http.StatusNotFound, "Payment not found"
	} else {
		h.log.Error("failed to load payment", "token", token, "error", err)
	}

	if asJSON {
		utils.SendErrorResponse(w, status, message)
	} else {
		http.Error(w, message, status)
	}
	return nil, false
}

// PaymentPage shows the card form on GET and submits it on POST.
func (h *PaymentHandler) PaymentPage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPayment(w, r, false)
	if !ok {
		return
	}

	if p.Status.IsFinal() {
		if p.Status == models.PaymentStatusRejected {
			h.redirectWithFlash(w, r, failurePath(p), flashUnavailable)
			return
		}
		http.Redirect(w, r, successPath(p), http.StatusFound)
		return
	}

	var data map[string][]string
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		data = r.PostForm
	}

	form, err := h.provider.GetForm(r.Context(), p, data)
	if target, ok := payment.AsRedirect(err); ok {
		if target == "" {
			target = successPath(p)
		}
		h.log.Info("payment completed", "payment_id", p.ID, "status", p.Status)
		h.redirectWithFlash(w, r, target, flashConfirmed)
		return
	}
	if err != nil {
		h.log.Error("payment form failed", "payment_id", p.ID, "error", err)
		http.Error(w, "Payment could not be processed, please try again later", http.StatusBadGateway)
		return
	}

	formHTML, err := form.Render(paymentPath(p))
	if err != nil {
		h.log.Error("failed to render payment form", "payment_id", p.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if form.HasErrors() {
		status = http.StatusUnprocessableEntity
	}
	if err := renderPage(w, status, "payment_content", pageData{
		Title:   "Payment",
		Payment: p,
		Amount:  utils.FormatAmount(p.Total),
		Form:    formHTML,
	}); err != nil {
		h.log.Error("failed to render payment page", "payment_id", p.ID, "error", err)
	}
}

func (h *PaymentHandler) ProcessData(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPayment(w, r, false)
	if !ok {
		return
	}
	h.provider.ProcessData(w, r, p)
}

func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.result(w, r, "Payment successful")
}

func (h *PaymentHandler) Failure(w http.ResponseWriter, r *http.Request) {
	h.result(w, r, "Payment failed")
}

func (h *PaymentHandler) result(w http.ResponseWriter, r *http.Request, title string) {
	p, ok := h.loadPayment(w, r, false)
	if !ok {
		return
	}

	if err := renderPage(w, http.StatusOK, "result_content", pageData{
		Title:   title,
		Payment: p,
		Amount:  utils.FormatAmount(p.Total),
		Flashes: h.popFlashes(w, r),
	}); err != nil {
		h.log.Error("failed to render result page", "payment_id", p.ID, "error", err)
	}
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPayment(w, r, true)
	if !ok {
		return
	}
	utils.SendSuccessResponse(w, models.APIResponse{
		Status: "success",
		Data:   models.NewPaymentStatusResponse(p),
	})
}

func (h *PaymentHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		// A stale cookie still yields a fresh session.
		h.log.Warn("discarding unreadable session", "error", err)
	}
	session.AddFlash(message)
	if err := session.Save(r, w); err != nil {
		h.log.Warn("failed to save session", "error", err)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *PaymentHandler) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		h.log.Warn("failed to save session", "error", err)
	}

	flashes := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			flashes = append(flashes, s)
		}
	}
	return flashes
}

func paymentPath(p *models.Payment) string {
	return fmt.Sprintf("/payments/%s", p.Token)
}

func successPath(p *models.Payment) string {
	if p.SuccessURL != "" {
		return p.SuccessURL
	}
	return paymentPath(p) + "/success"
}

func failurePath(p *models.Payment) string {
	if p.FailureURL != "" {
		return p.FailureURL
	}
	return paymentPath(p) + "/failure"
}
