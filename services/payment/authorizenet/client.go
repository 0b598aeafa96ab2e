package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"payments-authorizenet/logger"
)

const (
	SandboxEndpoint    = "https://apitest.authorize.net/xml/v1/request.api"
	ProductionEndpoint = "https://api.authorize.net/xml/v1/request.api"
	RequestTimeout     = 30 * time.Second
)

// Client posts requests to the Authorize.Net JSON API. It holds the merchant
// credentials for its whole lifetime and is safe for concurrent use.
type Client struct {
	apiLoginID     string
	transactionKey string
	endpoint       string
	client         *http.Client
	log            *slog.Logger
}

type ClientOption func(*Client)

// WithEndpoint overrides the live/sandbox endpoint selection.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout bounds each gateway round trip. The client owns its
// http.Client, so the change stays local to c.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func NewClient(apiLoginID, transactionKey string, isLive bool, opts ...ClientOption) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	endpoint := SandboxEndpoint
	if isLive {
		endpoint = ProductionEndpoint
	}

	c := &Client{
		apiLoginID:     apiLoginID,
		transactionKey: transactionKey,
		endpoint:       endpoint,
		client: &http.Client{
			Timeout:   RequestTimeout,
			Transport: transport,
		},
		log: logger.WithComponent("authorizenet"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) MerchantAuthentication() MerchantAuthenticationType {
	return MerchantAuthenticationType{
		Name:           c.apiLoginID,
		TransactionKey: c.transactionKey,
	}
}

// Execute wraps request under root, posts it and decodes the reply into out.
// A gateway-level "Error" result is not an error here; callers inspect out.
func (c *Client) Execute(ctx context.Context, root string, request, out interface{}) error {
	startTime := time.Now()

	payload, err := json.Marshal(map[string]interface{}{root: request})
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", root, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating %s: %w", root, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("error sending %s: %w", root, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", root, err)
	}

	c.log.Debug("gateway response received", "request", root, "status", resp.StatusCode, "elapsed", time.Since(startTime))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned HTTP %d for %s", resp.StatusCode, root)
	}

	// The API prefixes its JSON with a UTF-8 BOM.
	clean := bytes.TrimPrefix(body, []byte("\ufeff"))
	if err := json.Unmarshal(clean, out); err != nil {
		return fmt.Errorf("error decoding %s response: %w, body: %s", root, err, strings.TrimSpace(string(clean)))
	}
	return nil
}

func (c *Client) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*Response, error) {
	var resp Response
	if err := c.Execute(ctx, "createTransactionRequest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req *ARBCreateSubscriptionRequest) (*Response, error) {
	var resp Response
	if err := c.Execute(ctx, "ARBCreateSubscriptionRequest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VoidTransaction cancels an unsettled transaction.
func (c *Client) VoidTransaction(ctx context.Context, transactionID string) (*Response, error) {
	return c.CreateTransaction(ctx, &CreateTransactionRequest{
		MerchantAuthentication: c.MerchantAuthentication(),
		TransactionRequest: TransactionRequestType{
			TransactionType: "voidTransaction",
			RefTransID:      transactionID,
		},
	})
}
