package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"payments-authorizenet/database"
	"payments-authorizenet/models"
	"payments-authorizenet/queue"
	"payments-authorizenet/services/payment"
	"payments-authorizenet/services/payment/authorizenet"
)

const (
	approvedReply = `{"transactionResponse":{"responseCode":"1","authCode":"ABC123","transId":"60012345678"},"messages":{"resultCode":"Ok","message":[{"code":"I00001","text":"Successful."}]}}`
	declinedReply = `{"transactionResponse":{"responseCode":"2","transId":"0","errors":[{"errorCode":"2","errorText":"This transaction has been declined."}]},"messages":{"resultCode":"Error","message":[{"code":"E00027","text":"The transaction was unsuccessful."}]}}`
)

type memoryRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	nextID   int64
}

func newMemoryRepo(payments ...*models.Payment) *memoryRepo {
	repo := &memoryRepo{payments: map[string]*models.Payment{}, nextID: 100}
	for _, p := range payments {
		repo.payments[p.Token] = p
	}
	return repo
}

func (m *memoryRepo) GetPaymentByToken(ctx context.Context, token string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[token]
	if !ok {
		return nil, database.ErrPaymentNotFound
	}
	return p, nil
}

func (m *memoryRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.payments[p.Token] = p
	return nil
}

func (m *memoryRepo) SavePayment(ctx context.Context, p *models.Payment) error { return nil }

func (m *memoryRepo) UpdatePaymentStatus(ctx context.Context, p *models.Payment) error { return nil }

type gatewayStub struct {
	mu    sync.Mutex
	reply string
	calls int
}

func newGatewayStub(t *testing.T, reply string) (*gatewayStub, *httptest.Server) {
	g := &gatewayStub{reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.calls++
		reply := g.reply
		g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("\ufeff" + reply))
	}))
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *gatewayStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingQueue struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (q *recordingQueue) EnqueueRefund(ctx context.Context, token string) (*queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tokens = append(q.tokens, token)
	return &queue.Job{ID: "job-1", Type: queue.JobTypeRefundPayment}, nil
}

func testPayment(token string, status models.PaymentStatus) *models.Payment {
	return &models.Payment{
		ID:               7,
		Token:            token,
		Variant:          payment.Variant,
		Status:           status,
		Total:            25,
		Currency:         "USD",
		Description:      "Annual plan",
		BillingFirstName: "Grace",
		BillingLastName:  "Hopper",
		SuccessURL:       "https://shop.example.com/ok",
		FailureURL:       "https://shop.example.com/fail",
	}
}

func newPaymentRouter(t *testing.T, repo *memoryRepo, gateway *httptest.Server) *mux.Router {
	t.Helper()
	provider := payment.NewAuthorizeNetProvider("login", "key", false, false, repo,
		payment.WithClientOptions(authorizenet.WithEndpoint(gateway.URL)))
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))

	router := mux.NewRouter()
	NewPaymentHandler(repo, provider, store).Register(router)
	return router
}

func validCardForm() url.Values {
	return url.Values{
		"number":           {"4111 1111 1111 1111"},
		"expiration_month": {"12"},
		"expiration_year":  {"2035"},
		"cvv2":             {"123"},
	}
}
