// Package payment creates orders at the Razorpay-compatible payment gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"medcert-apply/internal/common/config"
	commonhttp "medcert-apply/internal/common/http"
)

var (
	ErrGatewayFailed  = errors.New("PAYMENT_GATEWAY_FAILED")
	ErrGatewayRejects = errors.New("PAYMENT_REQUEST_REJECTED")
)

// OrderRequest is an order for amount in the smallest currency unit.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type orderCollection struct {
	Entity string  `json:"entity"`
	Count  int     `json:"count"`
	Items  []Order `json:"items"`
}

// Gateway creates payment orders and finds them again by receipt.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	FindOrderByReceipt(ctx context.Context, receipt string) (*Order, error)
}

type Client struct {
	http      *commonhttp.Client
	baseURL   string
	keyID     string
	keySecret string
}

func NewClient(httpClient *commonhttp.Client, baseURL, keyID, keySecret string) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// NewClientFromConfig builds a client from the payment integration section.
func NewClientFromConfig(cfg config.IntegrationConfig) *Client {
	p := cfg.Payment
	return NewClient(commonhttp.NewClient(config.GetDuration(p.Timeout)), p.BaseURL, p.KeyID, p.KeySecret)
}

// CreateOrder posts to /v1/orders. 4xx responses other than 429 are
// reported as ErrGatewayRejects, everything else as ErrGatewayFailed.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	var order Order
	if err := c.http.DoJSON(ctx, httpReq, req, &order); err != nil {
		return nil, classify(err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order id missing from response", ErrGatewayFailed)
	}
	return &order, nil
}

// FindOrderByReceipt returns the order created for receipt, or nil when the
// gateway has none.
func (c *Client) FindOrderByReceipt(ctx context.Context, receipt string) (*Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/orders?receipt="+url.QueryEscape(receipt), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	var orders orderCollection
	if err := c.http.DoJSON(ctx, httpReq, nil, &orders); err != nil {
		return nil, classify(err)
	}
	for i := range orders.Items {
		if o := orders.Items[i]; o.Receipt == receipt && o.ID != "" {
			return &o, nil
		}
	}
	return nil, nil
}

func classify(err error) error {
	var se *commonhttp.StatusError
	if errors.As(err, &se) && !se.Temporary() {
		return fmt.Errorf("%w: %v", ErrGatewayRejects, err)
	}
	return fmt.Errorf("%w: %v", ErrGatewayFailed, err)
}

// ToPaise converts whole rupees to paise.
func ToPaise(rupees int) int64 {
	return int64(rupees) * 100
}
