// models/payment_status.go
package models

type PaymentStatus string

const (
	PaymentStatusWaiting   PaymentStatus = "waiting"
	PaymentStatusPreauth   PaymentStatus = "preauth"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusError     PaymentStatus = "error"
	PaymentStatusInput     PaymentStatus = "input"
)

func (ps PaymentStatus) String() string {
	return string(ps)
}

func (ps PaymentStatus) IsValid() bool {
	switch ps {
	case PaymentStatusWaiting,
		PaymentStatusPreauth,
		PaymentStatusConfirmed,
		PaymentStatusRejected,
		PaymentStatusRefunded,
		PaymentStatusError,
		PaymentStatusInput:
		return true
	}
	return false
}

// IsFinal reports whether no further charge can be attempted for the payment.
func (ps PaymentStatus) IsFinal() bool {
	return ps == PaymentStatusConfirmed || ps == PaymentStatusRefunded || ps == PaymentStatusRejected
}
