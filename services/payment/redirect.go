package payment

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTransactionID = errors.New("payment has no transaction id")
	ErrGatewayRejected      = errors.New("gateway rejected the request")
)

// RedirectNeeded tells the caller to send the customer to URL instead of
// rendering the form. It travels as an error value.
type RedirectNeeded struct {
	URL string
}

func (r *RedirectNeeded) Error() string {
	return fmt.Sprintf("redirect needed: %s", r.URL)
}

// AsRedirect reports whether err carries a redirect and returns its target.
func AsRedirect(err error) (string, bool) {
	var rn *RedirectNeeded
	if errors.As(err, &rn) {
		return rn.URL, true
	}
	return "", false
}
