// Package forms holds the generic credit-card form that payment providers
// embed. It binds posted values, validates them and renders HTML; what
// happens with a valid card is up to the provider.
package forms

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"payments-authorizenet/models"
)

const (
	FieldNumber          = "number"
	FieldExpirationMonth = "expiration_month"
	FieldExpirationYear  = "expiration_year"
	FieldCVV2            = "cvv2"
)

const (
	msgRequired   = "This field is required."
	msgWholeNum   = "Enter a whole number."
	msgCardNumber = "Please enter a valid card number"
	msgExpired    = "This credit card has expired."
	msgMonth      = "Enter a valid month."
	msgYear       = "Enter a valid year."
	msgCVV        = "Enter a valid security number."
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
}

type cardInput struct {
	Number          string `field:"number" validate:"required,numeric,min=13,max=19"`
	ExpirationMonth int    `field:"expiration_month" validate:"required,min=1,max=12"`
	ExpirationYear  int    `field:"expiration_year" validate:"required,min=1000,max=9999"`
	CVV2            string `field:"cvv2" validate:"required,numeric,min=3,max=4"`
}

var fieldMessages = map[string]string{
	FieldNumber:          msgCardNumber,
	FieldExpirationMonth: msgMonth,
	FieldExpirationYear:  msgYear,
	FieldCVV2:            msgCVV,
}

type CreditCardForm struct {
	data    url.Values
	input   cardInput
	errors  map[string][]string
	general []string
	cleaned bool
	now     func() time.Time
}

// NewCreditCardForm binds data. A nil data leaves the form unbound, which is
// never valid and renders empty.
func NewCreditCardForm(data url.Values) *CreditCardForm {
	return &CreditCardForm{
		data:   data,
		errors: map[string][]string{},
		now:    time.Now,
	}
}

func (f *CreditCardForm) SetClock(now func() time.Time) {
	f.now = now
}

func (f *CreditCardForm) IsBound() bool {
	return f.data != nil
}

// Clean runs field validation once and reports whether the fields are valid.
func (f *CreditCardForm) Clean() bool {
	if !f.IsBound() {
		return false
	}
	if f.cleaned {
		return len(f.errors) == 0
	}
	f.cleaned = true

	f.input.Number = stripCardNumber(f.data.Get(FieldNumber))
	f.input.CVV2 = strings.TrimSpace(f.data.Get(FieldCVV2))
	f.input.ExpirationMonth = f.intField(FieldExpirationMonth)
	f.input.ExpirationYear = f.intField(FieldExpirationYear)

	if err := validate.Struct(f.input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				if _, seen := f.errors[fe.Field()]; seen {
					continue
				}
				if fe.Tag() == "required" {
					f.AddError(fe.Field(), msgRequired)
				} else {
					f.AddError(fe.Field(), fieldMessages[fe.Field()])
				}
			}
		} else {
			f.AddNonFieldErrors(err.Error())
		}
	}

	if _, bad := f.errors[FieldNumber]; !bad && !luhnValid(f.input.Number) {
		f.AddError(FieldNumber, msgCardNumber)
	}

	_, badMonth := f.errors[FieldExpirationMonth]
	_, badYear := f.errors[FieldExpirationYear]
	if !badMonth && !badYear && f.expired() {
		f.AddError(FieldExpirationYear, msgExpired)
	}

	return len(f.errors) == 0
}

func (f *CreditCardForm) intField(name string) int {
	raw := strings.TrimSpace(f.data.Get(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.AddError(name, msgWholeNum)
		return 0
	}
	return n
}

// expired reports whether the card is past the last day of its month.
func (f *CreditCardForm) expired() bool {
	firstOfNext := time.Date(f.input.ExpirationYear, time.Month(f.input.ExpirationMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	return !f.now().UTC().Before(firstOfNext)
}

func (f *CreditCardForm) AddError(field, message string) {
	f.errors[field] = append(f.errors[field], message)
}

// AddNonFieldErrors attaches form-level errors.
func (f *CreditCardForm) AddNonFieldErrors(messages ...string) {
	f.general = append(f.general, messages...)
}

func (f *CreditCardForm) Errors() map[string][]string {
	return f.errors
}

func (f *CreditCardForm) NonFieldErrors() []string {
	return f.general
}

func (f *CreditCardForm) HasErrors() bool {
	return len(f.errors) > 0 || len(f.general) > 0
}

// CardData is only meaningful after a successful Clean.
func (f *CreditCardForm) CardData() models.CardData {
	return models.CardData{
		Number:          f.input.Number,
		ExpirationYear:  f.input.ExpirationYear,
		ExpirationMonth: f.input.ExpirationMonth,
		CVV2:            f.input.CVV2,
	}
}

var formTemplate = template.Must(template.New("credit_card").Parse(`<form method="post" action="{{.Action}}" class="payment-form" autocomplete="off">
{{- range .NonFieldErrors}}
  <p class="error">{{.}}</p>
{{- end}}
  <label for="id_number">Card number</label>
  <input type="text" id="id_number" name="number" inputmode="numeric" autocomplete="cc-number" required>
{{- range index .Errors "number"}}
  <span class="error">{{.}}</span>
{{- end}}
  <label for="id_expiration_month">Expiration</label>
  <input type="text" id="id_expiration_month" name="expiration_month" value="{{.Month}}" placeholder="MM" maxlength="2" autocomplete="cc-exp-month" required>
  <input type="text" id="id_expiration_year" name="expiration_year" value="{{.Year}}" placeholder="YYYY" maxlength="4" autocomplete="cc-exp-year" required>
{{- range index .Errors "expiration_month"}}
  <span class="error">{{.}}</span>
{{- end}}
{{- range index .Errors "expiration_year"}}
  <span class="error">{{.}}</span>
{{- end}}
  <label for="id_cvv2">CVV2 security number</label>
  <input type="password" id="id_cvv2" name="cvv2" maxlength="4" autocomplete="cc-csc" required>
{{- range index .Errors "cvv2"}}
  <span class="error">{{.}}</span>
{{- end}}
  <button type="submit">Pay</button>
</form>`))

// Render returns the form as HTML posting to action. Card number and CVV2
// are never written back into the page.
func (f *CreditCardForm) Render(action string) (template.HTML, error) {
	var month, year string
	if f.IsBound() {
		month = f.data.Get(FieldExpirationMonth)
		year = f.data.Get(FieldExpirationYear)
	}

	var buf bytes.Buffer
	err := formTemplate.Execute(&buf, struct {
		Action         string
		Errors         map[string][]string
		NonFieldErrors []string
		Month          string
		Year           string
	}{
		Action:         action,
		Errors:         f.errors,
		NonFieldErrors: f.general,
		Month:          month,
		Year:           year,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render credit card form: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func stripCardNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func luhnValid(cardNumber string) bool {
	if cardNumber == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		digit := int(cardNumber[i] - '0')
		if digit < 0 || digit > 9 {
			return false
		}
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}
