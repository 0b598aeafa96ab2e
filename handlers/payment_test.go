package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments-authorizenet/models"
	"payments-authorizenet/services/payment"
)

func postForm(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPaymentPageRendersForm(t *testing.T) {
	p := testPayment("tok-get", models.PaymentStatusWaiting)
	repo := newMemoryRepo(p)
	gateway, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, repo, srv)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/tok-get", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="number"`)
	assert.Contains(t, body, `action="/payments/tok-get"`)
	assert.Contains(t, body, "25.00 USD")
	assert.Contains(t, body, "Annual plan")
	assert.Equal(t, models.PaymentStatusInput, p.Status)
	assert.Zero(t, gateway.callCount())
}

func TestPaymentPageConfirmsAndFlashes(t *testing.T) {
	p := testPayment("tok-ok", models.PaymentStatusWaiting)
	p.SuccessURL = ""
	repo := newMemoryRepo(p)
	_, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, repo, srv)

	rec := postForm(router, "/payments/tok-ok", validCardForm().Encode())

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/payments/tok-ok/success", rec.Header().Get("Location"))
	assert.Equal(t, models.PaymentStatusConfirmed, p.Status)
	assert.Equal(t, "60012345678", p.TransactionID)
	assert.Equal(t, 25.0, p.CapturedAmount)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/payments/tok-ok/success", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), flashConfirmed)
	assert.Contains(t, rec.Body.String(), "Status: confirmed")
}

func TestPaymentPageRedirectsToMerchantSuccessURL(t *testing.T) {
	p := testPayment("tok-merchant", models.PaymentStatusInput)
	_, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, newMemoryRepo(p), srv)

	rec := postForm(router, "/payments/tok-merchant", validCardForm().Encode())

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/ok", rec.Header().Get("Location"))
}

func TestPaymentPageDeclined(t *testing.T) {
	p := testPayment("tok-declined", models.PaymentStatusWaiting)
	_, srv := newGatewayStub(t, declinedReply)
	router := newPaymentRouter(t, newMemoryRepo(p), srv)

	rec := postForm(router, "/payments/tok-declined", validCardForm().Encode())

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "We have some errors during this transaction")
	assert.Contains(t, body, "2: This transaction has been declined.")
	assert.NotContains(t, body, "4111")
	assert.Equal(t, models.PaymentStatusError, p.Status)
	assert.Empty(t, p.TransactionID)
}

func TestPaymentPageInvalidCard(t *testing.T) {
	p := testPayment("tok-bad", models.PaymentStatusInput)
	gateway, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, newMemoryRepo(p), srv)

	form := validCardForm()
	form.Set("number", "4111111111111112")
	rec := postForm(router, "/payments/tok-bad", form.Encode())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, gateway.callCount())
	assert.Equal(t, models.PaymentStatusInput, p.Status)
}

func TestPaymentPageFinalStatus(t *testing.T) {
	_, srv := newGatewayStub(t, approvedReply)

	confirmed := testPayment("tok-done", models.PaymentStatusConfirmed)
	rejected := testPayment("tok-rejected", models.PaymentStatusRejected)
	router := newPaymentRouter(t, newMemoryRepo(confirmed, rejected), srv)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/tok-done", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/ok", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/tok-rejected", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/fail", rec.Header().Get("Location"))
}

func TestPaymentPageNotFound(t *testing.T) {
	_, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, newMemoryRepo(), srv)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestProcessDataIsForbidden(t *testing.T) {
	p := testPayment("tok-process", models.PaymentStatusInput)
	_, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, newMemoryRepo(p), srv)

	rec := postForm(router, "/payments/tok-process/process", "x_response_code=1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FAILED", rec.Body.String())
	assert.Equal(t, models.PaymentStatusInput, p.Status)
}

func TestStatusEndpoint(t *testing.T) {
	p := testPayment("tok-status", models.PaymentStatusConfirmed)
	p.TransactionID = "60099"
	p.CapturedAmount = 25
	_, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, newMemoryRepo(p), srv)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/tok-status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string                       `json:"status"`
		Data   models.PaymentStatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, models.PaymentStatusConfirmed, resp.Data.Status)
	assert.Equal(t, "60099", resp.Data.TransactionID)
	assert.Equal(t, 25.0, resp.Data.CapturedAmount)
}

func TestFailurePageShowsMessage(t *testing.T) {
	p := testPayment("tok-fail", models.PaymentStatusError)
	p.Message = payment.GenericErrorMessage
	_, srv := newGatewayStub(t, approvedReply)
	router := newPaymentRouter(t, newMemoryRepo(p), srv)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/tok-fail/failure", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment failed")
	assert.Contains(t, rec.Body.String(), "Status: error")
}
