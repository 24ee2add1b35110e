// Package paypal creates payment orders on the PayPal Orders v2 API and
// returns the URL the buyer is sent to for approval.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrInvalidAmount = errors.New("total amount must be a number greater than 0")
	ErrNoApprovalURL = errors.New("approval url missing from paypal response")
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string
	ReturnURL    string
	CancelURL    string
	BrandName    string
}

type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client whose requests carry a client-credentials token that is
// fetched and refreshed on demand.
func New(ctx context.Context, cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	hc := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second}))
	hc.Timeout = 15 * time.Second
	cfg.BaseURL = base
	return &Client{cfg: cfg, http: hc}
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount amount `json:"amount"`
}

type applicationContext struct {
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	BrandName   string `json:"brand_name,omitempty"`
	LandingPage string `json:"landing_page"`
}

type createOrderRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

// CreateOrder opens a CAPTURE order for total and returns its approval URL.
func (c *Client) CreateOrder(ctx context.Context, total decimal.Decimal) (string, error) {
	if !total.IsPositive() {
		return "", ErrInvalidAmount
	}
	body, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{CurrencyCode: c.cfg.Currency, Value: total.StringFixed(2)},
		}},
		ApplicationContext: applicationContext{
			ReturnURL:   c.cfg.ReturnURL,
			CancelURL:   c.cfg.CancelURL,
			BrandName:   c.cfg.BrandName,
			LandingPage: "LOGIN",
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "paypal create order")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", errors.Errorf("paypal create order: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode paypal response")
	}
	for _, l := range out.Links {
		if l.Rel == "approve" && l.Href != "" {
			return l.Href, nil
		}
	}
	return "", ErrNoApprovalURL
}

// ParseAmount accepts a JSON number or numeric string.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
