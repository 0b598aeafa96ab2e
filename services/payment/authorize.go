package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payments-authorizenet/logger"
	"payments-authorizenet/models"
	"payments-authorizenet/services/payment/authorizenet"
	"payments-authorizenet/utils"
)

const (
	Variant = "authorizenet"

	GenericErrorMessage = "We have some errors during this transaction... Please check your card number, your Expiration Date and Security Code and try again."

	transactionTypeAuthCapture = "authCaptureTransaction"
)

// AuthorizeNetProvider charges payments through Authorize.Net, either as a
// one-time authorize-and-capture or as a monthly ARB subscription.
type AuthorizeNetProvider struct {
	isLive      bool
	isRecurring bool
	client      *authorizenet.Client
	store       PaymentStore
	now         func() time.Time
	log         *slog.Logger

	clientOpts []authorizenet.ClientOption
}

type ProviderOption func(*AuthorizeNetProvider)

// WithClientOptions passes options to the gateway client the provider builds.
func WithClientOptions(opts ...authorizenet.ClientOption) ProviderOption {
	return func(p *AuthorizeNetProvider) {
		p.clientOpts = append(p.clientOpts, opts...)
	}
}

func WithClock(now func() time.Time) ProviderOption {
	return func(p *AuthorizeNetProvider) {
		p.now = now
	}
}

func NewAuthorizeNetProvider(loginID, transactionKey string, isLive, isRecurring bool, store PaymentStore, opts ...ProviderOption) *AuthorizeNetProvider {
	p := &AuthorizeNetProvider{
		isLive:      isLive,
		isRecurring: isRecurring,
		store:       store,
		now:         time.Now,
		log:         logger.WithComponent("provider").With("variant", Variant),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = authorizenet.NewClient(loginID, transactionKey, isLive, p.clientOpts...)
	return p
}

// Endpoint is the gateway URL requests go to.
func (p *AuthorizeNetProvider) Endpoint() string {
	return p.client.Endpoint()
}

func (p *AuthorizeNetProvider) creditCard(card models.CardData) authorizenet.CreditCardType {
	return authorizenet.CreditCardType{
		CardNumber:     card.Number,
		ExpirationDate: card.Expiration(),
		CardCode:       card.CVV2,
	}
}

func (p *AuthorizeNetProvider) order(payment *models.Payment) *authorizenet.OrderType {
	return &authorizenet.OrderType{
		InvoiceNumber: fmt.Sprintf("PAYMENT - %d", payment.ID),
		Description:   "",
	}
}

func (p *AuthorizeNetProvider) transactionName(payment *models.Payment) string {
	if payment.Description != "" {
		return authorizenet.SubscriptionName(payment.Description)
	}
	return fmt.Sprintf("PAYMENT - %d", payment.ID)
}

func (p *AuthorizeNetProvider) paymentSchedule() authorizenet.PaymentScheduleType {
	return authorizenet.MonthlySchedule(authorizenet.DateOf(p.now().UTC()))
}

func (p *AuthorizeNetProvider) transactionRequest(payment *models.Payment, card models.CardData) *authorizenet.CreateTransactionRequest {
	return &authorizenet.CreateTransactionRequest{
		MerchantAuthentication: p.client.MerchantAuthentication(),
		TransactionRequest: authorizenet.TransactionRequestType{
			TransactionType: transactionTypeAuthCapture,
			Amount:          utils.FormatAmount(payment.Total),
			Payment:         &authorizenet.PaymentType{CreditCard: p.creditCard(card)},
			Order:           p.order(payment),
			BillTo: &authorizenet.CustomerAddressType{
				FirstName: payment.BillingFirstName,
				LastName:  payment.BillingLastName,
			},
		},
	}
}

func (p *AuthorizeNetProvider) subscriptionRequest(payment *models.Payment, card models.CardData) *authorizenet.ARBCreateSubscriptionRequest {
	return &authorizenet.ARBCreateSubscriptionRequest{
		MerchantAuthentication: p.client.MerchantAuthentication(),
		Subscription: authorizenet.ARBSubscriptionType{
			Name:            p.transactionName(payment),
			PaymentSchedule: p.paymentSchedule(),
			Amount:          utils.FormatAmount(payment.Total),
			Payment:         authorizenet.PaymentType{CreditCard: p.creditCard(card)},
			Order:           p.order(payment),
			BillTo: &authorizenet.NameAndAddressType{
				FirstName: payment.BillingFirstName,
				LastName:  payment.BillingLastName,
			},
		},
	}
}

// MakeTransaction charges card for payment and returns the raw gateway
// response. It blocks on the gateway and does not retry.
func (p *AuthorizeNetProvider) MakeTransaction(ctx context.Context, payment *models.Payment, card models.CardData) (*authorizenet.Response, error) {
	p.log.Info("submitting transaction",
		"payment_id", payment.ID,
		"recurring", p.isRecurring,
		"live", p.isLive,
		"card", card.Masked(),
	)

	if p.isRecurring {
		return p.client.CreateSubscription(ctx, p.subscriptionRequest(payment, card))
	}
	return p.client.CreateTransaction(ctx, p.transactionRequest(payment, card))
}

// CheckResponse reports whether response is a successful charge. One-time
// charges additionally need an approved transaction response.
func (p *AuthorizeNetProvider) CheckResponse(response *authorizenet.Response) bool {
	if p.isRecurring {
		return response.IsOk()
	}
	return response.IsOk() &&
		response.TransactionResponse != nil &&
		response.TransactionResponse.ResponseCode == authorizenet.ResponseCodeApproved
}

func (p *AuthorizeNetProvider) GetTransactionID(response *authorizenet.Response) string {
	if p.isRecurring && response != nil {
		return response.SubscriptionID
	}
	if response == nil || response.TransactionResponse == nil {
		return ""
	}
	return response.TransactionResponse.TransID
}

// GetErrorMessages flattens the gateway errors of response into display
// strings, always led by GenericErrorMessage. A response without an error
// list yields only the generic message.
func (p *AuthorizeNetProvider) GetErrorMessages(response *authorizenet.Response) []string {
	transactionErrors := []string{GenericErrorMessage}
	if p.isRecurring && response != nil {
		for _, item := range response.Messages.Message {
			transactionErrors = append(transactionErrors, fmt.Sprintf("%s: %s", item.Code, item.Text))
		}
		return transactionErrors
	}
	if response == nil || response.TransactionResponse == nil {
		return transactionErrors
	}
	for _, item := range response.TransactionResponse.Errors {
		transactionErrors = append(transactionErrors, fmt.Sprintf("%s: %s", item.ErrorCode, item.ErrorText))
	}
	return transactionErrors
}

func (p *AuthorizeNetProvider) GetForm(ctx context.Context, payment *models.Payment, data url.Values) (*PaymentForm, error) {
	if payment.Status == models.PaymentStatusWaiting {
		payment.ChangeStatus(models.PaymentStatusInput, "")
		if err := p.store.UpdatePaymentStatus(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to move payment %d to input: %w", payment.ID, err)
		}
	}

	form := NewPaymentForm(data, payment, p, p.store)
	form.SetClock(p.now)
	valid, err := form.IsValid(ctx)
	if err != nil {
		return nil, err
	}
	if valid {
		return nil, &RedirectNeeded{URL: payment.SuccessURL}
	}
	return form, nil
}

// ProcessData rejects every gateway callback; this provider confirms
// payments synchronously.
func (p *AuthorizeNetProvider) ProcessData(w http.ResponseWriter, r *http.Request, payment *models.Payment) {
	p.log.Warn("rejected gateway callback", "payment_id", payment.ID, "remote", r.RemoteAddr)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("FAILED"))
}

// Refund voids a one-time charge or cancels a subscription and marks the
// payment refunded. Refunding an already refunded payment is a no-op.
func (p *AuthorizeNetProvider) Refund(ctx context.Context, payment *models.Payment) error {
	if payment.Status == models.PaymentStatusRefunded {
		return nil
	}
	if payment.TransactionID == "" {
		return fmt.Errorf("cannot refund payment %d: %w", payment.ID, ErrMissingTransactionID)
	}

	var (
		response *authorizenet.Response
		err      error
	)
	if p.isRecurring {
		response, err = p.client.CancelSubscription(ctx, payment.TransactionID)
	} else {
		response, err = p.client.VoidTransaction(ctx, payment.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("refund of payment %d failed: %w", payment.ID, err)
	}

	if !p.CheckResponse(response) {
		return fmt.Errorf("refund of payment %d: %w: %s", payment.ID, ErrGatewayRejected, describeFailure(response))
	}

	payment.CapturedAmount = 0
	payment.ChangeStatus(models.PaymentStatusRefunded, "")
	if err := p.store.SavePayment(ctx, payment); err != nil {
		return fmt.Errorf("failed to save refunded payment %d: %w", payment.ID, err)
	}

	p.log.Info("payment refunded", "payment_id", payment.ID, "transaction_id", payment.TransactionID)
	return nil
}

func describeFailure(response *authorizenet.Response) string {
	var parts []string
	if response.TransactionResponse != nil {
		for _, e := range response.TransactionResponse.Errors {
			parts = append(parts, e.ErrorCode+": "+e.ErrorText)
		}
	}
	for _, m := range response.Messages.Message {
		parts = append(parts, m.Code+": "+m.Text)
	}
	if len(parts) == 0 {
		return "no reason given"
	}
	return strings.Join(parts, "; ")
}
