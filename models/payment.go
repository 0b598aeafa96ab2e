package models

import (
	"fmt"
	"time"
)

// Payment is the record a provider charges against. Providers only touch it
// through ChangeStatus and the transaction fields; the store persists it.
type Payment struct {
	ID               int64         `json:"id"`
	Token            string        `json:"token"`
	Variant          string        `json:"variant"`
	Status           PaymentStatus `json:"status"`
	Total            float64       `json:"total"`
	Currency         string        `json:"currency"`
	Description      string        `json:"description"`
	BillingFirstName string        `json:"billing_first_name"`
	BillingLastName  string        `json:"billing_last_name"`
	TransactionID    string        `json:"transaction_id"`
	CapturedAmount   float64       `json:"captured_amount"`
	Message          string        `json:"message"`
	SuccessURL       string        `json:"success_url"`
	FailureURL       string        `json:"failure_url"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (p *Payment) ChangeStatus(status PaymentStatus, message string) {
	p.Status = status
	p.Message = message
}

// CardData is the raw card input of a single submission. It is never stored.
type CardData struct {
	Number          string
	ExpirationYear  int
	ExpirationMonth int
	CVV2            string
}

func (c CardData) Masked() string {
	if len(c.Number) < 4 {
		return "XXXX"
	}
	return "XXXX XXXX XXXX " + c.Number[len(c.Number)-4:]
}

// Expiration returns the card expiration in the gateway's YYYY-MM form.
func (c CardData) Expiration() string {
	return fmt.Sprintf("%04d-%02d", c.ExpirationYear, c.ExpirationMonth)
}

type CreatePaymentRequest struct {
	Total            float64 `json:"total" validate:"required,gt=0"`
	Currency         string  `json:"currency" validate:"omitempty,len=3"`
	Description      string  `json:"description" validate:"max=255"`
	BillingFirstName string  `json:"billing_first_name" validate:"max=50"`
	BillingLastName  string  `json:"billing_last_name" validate:"max=50"`
	SuccessURL       string  `json:"success_url" validate:"omitempty,url"`
	FailureURL       string  `json:"failure_url" validate:"omitempty,url"`
}
