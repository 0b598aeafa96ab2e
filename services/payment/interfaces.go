package payment

import (
	"context"
	"net/http"
	"net/url"

	"payments-authorizenet/models"
)

// Provider is what the HTTP layer needs from a payment backend.
type Provider interface {
	// GetForm returns the form to show for payment. When the submitted data
	// completes the payment it returns a *RedirectNeeded error instead.
	GetForm(ctx context.Context, payment *models.Payment, data url.Values) (*PaymentForm, error)
	// ProcessData handles gateway callbacks addressed to payment.
	ProcessData(w http.ResponseWriter, r *http.Request, payment *models.Payment)
	Refund(ctx context.Context, payment *models.Payment) error
}

// PaymentStore persists provider-side changes to a payment.
type PaymentStore interface {
	SavePayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, payment *models.Payment) error
}
