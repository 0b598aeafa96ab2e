package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"payments-authorizenet/forms"
	"payments-authorizenet/models"
	"payments-authorizenet/services/payment/authorizenet"
)

type transactor interface {
	MakeTransaction(ctx context.Context, payment *models.Payment, card models.CardData) (*authorizenet.Response, error)
	CheckResponse(response *authorizenet.Response) bool
	GetTransactionID(response *authorizenet.Response) string
	GetErrorMessages(response *authorizenet.Response) []string
}

// PaymentForm is the credit-card form whose validation charges the card.
type PaymentForm struct {
	*forms.CreditCardForm

	payment  *models.Payment
	provider transactor
	store    PaymentStore

	checked bool
	valid   bool
}

func NewPaymentForm(data url.Values, payment *models.Payment, provider transactor, store PaymentStore) *PaymentForm {
	return &PaymentForm{
		CreditCardForm: forms.NewCreditCardForm(data),
		payment:        payment,
		provider:       provider,
		store:          store,
	}
}

func (f *PaymentForm) Payment() *models.Payment {
	return f.payment
}

// IsValid validates the card fields and, for a payment without a
// transaction yet, submits the charge. It runs at most once per form.
// Gateway declines make the form invalid; transport and store failures are
// returned as errors.
func (f *PaymentForm) IsValid(ctx context.Context) (bool, error) {
	if f.checked {
		return f.valid, nil
	}
	f.checked = true

	if !f.Clean() {
		return false, nil
	}
	if err := f.charge(ctx); err != nil {
		return false, err
	}
	f.valid = !f.HasErrors()
	return f.valid, nil
}

func (f *PaymentForm) charge(ctx context.Context) error {
	if f.payment.TransactionID != "" {
		return nil
	}

	response, err := f.provider.MakeTransaction(ctx, f.payment, f.CardData())
	if err != nil {
		return fmt.Errorf("transaction for payment %d failed: %w", f.payment.ID, err)
	}

	if f.provider.CheckResponse(response) {
		f.payment.TransactionID = f.provider.GetTransactionID(response)
		f.payment.CapturedAmount = f.payment.Total
		if err := f.store.SavePayment(ctx, f.payment); err != nil {
			return fmt.Errorf("failed to save charged payment %d: %w", f.payment.ID, err)
		}
		f.payment.ChangeStatus(models.PaymentStatusConfirmed, "")
		return f.store.UpdatePaymentStatus(ctx, f.payment)
	}

	errs := f.provider.GetErrorMessages(response)
	f.AddNonFieldErrors(errs...)
	f.payment.ChangeStatus(models.PaymentStatusError, strings.Join(errs, " "))
	return f.store.UpdatePaymentStatus(ctx, f.payment)
}
