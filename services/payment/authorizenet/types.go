package authorizenet

// Field order in these structs is the element order the gateway's schema
// requires; the JSON API rejects out-of-order elements.

type MerchantAuthenticationType struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type CreditCardType struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

type PaymentType struct {
	CreditCard CreditCardType `json:"creditCard"`
}

type OrderType struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Description   string `json:"description"`
}

// CustomerAddressType is the bill-to of a one-time transaction.
type CustomerAddressType struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

// NameAndAddressType is the bill-to of an ARB subscription.
type NameAndAddressType struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type TransactionRequestType struct {
	TransactionType string               `json:"transactionType"`
	Amount          string               `json:"amount,omitempty"`
	Payment         *PaymentType         `json:"payment,omitempty"`
	RefTransID      string               `json:"refTransId,omitempty"`
	Order           *OrderType           `json:"order,omitempty"`
	BillTo          *CustomerAddressType `json:"billTo,omitempty"`
}

type CreateTransactionRequest struct {
	MerchantAuthentication MerchantAuthenticationType `json:"merchantAuthentication"`
	RefID                  string                     `json:"refId,omitempty"`
	TransactionRequest     TransactionRequestType     `json:"transactionRequest"`
}

type IntervalType struct {
	Length int    `json:"length"`
	Unit   string `json:"unit"`
}

type PaymentScheduleType struct {
	Interval         IntervalType `json:"interval"`
	StartDate        Date         `json:"startDate"`
	TotalOccurrences int          `json:"totalOccurrences"`
}

type ARBSubscriptionType struct {
	Name            string              `json:"name,omitempty"`
	PaymentSchedule PaymentScheduleType `json:"paymentSchedule"`
	Amount          string              `json:"amount"`
	Payment         PaymentType         `json:"payment"`
	Order           *OrderType          `json:"order,omitempty"`
	BillTo          *NameAndAddressType `json:"billTo,omitempty"`
}

type ARBCreateSubscriptionRequest struct {
	MerchantAuthentication MerchantAuthenticationType `json:"merchantAuthentication"`
	RefID                  string                     `json:"refId,omitempty"`
	Subscription           ARBSubscriptionType        `json:"subscription"`
}

type ARBCancelSubscriptionRequest struct {
	MerchantAuthentication MerchantAuthenticationType `json:"merchantAuthentication"`
	RefID                  string                     `json:"refId,omitempty"`
	SubscriptionID         string                     `json:"subscriptionId"`
}

const (
	ResultCodeOk = "Ok"

	// ResponseCodeApproved is transactionResponse.responseCode for an
	// approved charge. 2 is declined, 3 error, 4 held for review.
	ResponseCodeApproved = "1"
)

type MessageType struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type MessagesType struct {
	ResultCode string        `json:"resultCode"`
	Message    []MessageType `json:"message"`
}

type TransactionMessage struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type TransactionError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

type TransactionResponse struct {
	ResponseCode  string               `json:"responseCode"`
	AuthCode      string               `json:"authCode"`
	AVSResultCode string               `json:"avsResultCode"`
	CVVResultCode string               `json:"cvvResultCode"`
	TransID       string               `json:"transId"`
	RefTransID    string               `json:"refTransID"`
	AccountNumber string               `json:"accountNumber"`
	AccountType   string               `json:"accountType"`
	Messages      []TransactionMessage `json:"messages,omitempty"`
	Errors        []TransactionError   `json:"errors,omitempty"`
}

// Response covers createTransactionResponse, ARBCreateSubscriptionResponse
// and ARBCancelSubscriptionResponse. Fields a given call does not return stay
// zero; TransactionResponse is nil for ARB calls.
type Response struct {
	RefID               string               `json:"refId,omitempty"`
	Messages            MessagesType         `json:"messages"`
	TransactionResponse *TransactionResponse `json:"transactionResponse,omitempty"`
	SubscriptionID      string               `json:"subscriptionId,omitempty"`
}

func (r *Response) IsOk() bool {
	return r != nil && r.Messages.ResultCode == ResultCodeOk
}

// FirstMessage returns the first top-level message text, or "".
func (r *Response) FirstMessage() string {
	if r == nil || len(r.Messages.Message) == 0 {
		return ""
	}
	m := r.Messages.Message[0]
	return m.Code + ": " + m.Text
}
