package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"payments-authorizenet/models"
	"payments-authorizenet/services/payment/authorizenet"
)

var testNow = func() time.Time { return time.Date(2026, time.October, 19, 15, 4, 5, 0, time.UTC) }

type memoryStore struct {
	mu       sync.Mutex
	saves    int
	statuses []models.PaymentStatus
	saveErr  error
}

func (s *memoryStore) SavePayment(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return nil
}

func (s *memoryStore) UpdatePaymentStatus(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, p.Status)
	return nil
}

// fakeGateway answers every request with reply and keeps the decoded
// request bodies keyed by root element.
type fakeGateway struct {
	t        *testing.T
	mu       sync.Mutex
	reply    string
	status   int
	requests []map[string]json.RawMessage
	raw      []string
}

func newFakeGateway(t *testing.T, reply string) (*fakeGateway, *httptest.Server) {
	g := &fakeGateway{t: t, reply: reply, status: http.StatusOK}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(g.t, err)

	var decoded map[string]json.RawMessage
	require.NoError(g.t, json.Unmarshal(body, &decoded))

	g.mu.Lock()
	g.requests = append(g.requests, decoded)
	g.raw = append(g.raw, string(body))
	status, reply := g.status, g.reply
	g.mu.Unlock()

	w.WriteHeader(status)
	_, _ = io.WriteString(w, "\ufeff"+reply)
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGateway) last(root string) json.RawMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(g.t, g.requests)
	req := g.requests[len(g.requests)-1]
	require.Contains(g.t, req, root)
	return req[root]
}

func newTestProvider(srv *httptest.Server, recurring bool, store PaymentStore) *AuthorizeNetProvider {
	return NewAuthorizeNetProvider("login-id", "txn-key", false, recurring, store,
		WithClientOptions(authorizenet.WithEndpoint(srv.URL)),
		WithClock(testNow),
	)
}

func newTestPayment() *models.Payment {
	return &models.Payment{
		ID:               42,
		Token:            "3f2b6c1e-0000-4000-8000-000000000042",
		Variant:          Variant,
		Status:           models.PaymentStatusWaiting,
		Total:            19.9,
		Currency:         "USD",
		BillingFirstName: "Ada",
		BillingLastName:  "Lovelace",
		SuccessURL:       "https://shop.example.com/ok",
		FailureURL:       "https://shop.example.com/fail",
	}
}

const (
	approvedReply = `{"transactionResponse":{"responseCode":"1","authCode":"ABC123","transId":"60012345678","messages":[{"code":"1","description":"This transaction has been approved."}]},"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`
	declinedReply = `{"transactionResponse":{"responseCode":"2","transId":"0","errors":[{"errorCode":"2","errorText":"This transaction has been declined."}]},"messages":{"resultCode":"Error","message":[{"code":"E00027","text":"The transaction was unsuccessful."}]}}`
	arbOkReply    = `{"subscriptionId":"9001234","messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`
	arbErrorReply = `{"messages":{"resultCode":"Error","message":[{"code":"E00012","text":"You have submitted a duplicate of Subscription 9001233."}]}}`
)
