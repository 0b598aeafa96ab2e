package models

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PaymentStatusResponse struct {
	Token          string        `json:"token"`
	Status         PaymentStatus `json:"status"`
	Total          float64       `json:"total"`
	CapturedAmount float64       `json:"captured_amount"`
	TransactionID  string        `json:"transaction_id,omitempty"`
	Message        string        `json:"message,omitempty"`
}

func NewPaymentStatusResponse(p *Payment) PaymentStatusResponse {
	return PaymentStatusResponse{
		Token:          p.Token,
		Status:         p.Status,
		Total:          p.Total,
		CapturedAmount: p.CapturedAmount,
		TransactionID:  p.TransactionID,
		Message:        p.Message,
	}
}
