package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrNotConfigured = errors.New("payments: secret key not configured")

// LinkRequest describes a hosted checkout for one lead.
type LinkRequest struct {
	Reference   string
	Amount      float64
	Currency    string
	RedirectURL string
	Name        string
	Email       string
	Phone       string
	Title       string
}

// Client creates hosted payment links (Flutterwave standard checkout).
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

type paymentBody struct {
	TxRef          string         `json:"tx_ref"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	RedirectURL    string         `json:"redirect_url,omitempty"`
	Customer       customer       `json:"customer"`
	Customizations customizations `json:"customizations"`
}

type customer struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phonenumber,omitempty"`
}

type customizations struct {
	Title string `json:"title,omitempty"`
}

type paymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

func (c *Client) CreatePaymentLink(ctx context.Context, req LinkRequest) (string, error) {
	if c.secretKey == "" {
		return "", ErrNotConfigured
	}
	if req.Reference == "" || req.Email == "" || req.Amount <= 0 || req.Currency == "" {
		return "", errors.New("payments: reference, email, amount and currency are required")
	}

	b, err := json.Marshal(paymentBody{
		TxRef:          req.Reference,
		Amount:         req.Amount,
		Currency:       req.Currency,
		RedirectURL:    req.RedirectURL,
		Customer:       customer{Email: req.Email, Name: req.Name, PhoneNumber: req.Phone},
		Customizations: customizations{Title: req.Title},
	})
	if err != nil {
		return "", errors.Wrap(err, "payments: encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/payments", bytes.NewReader(b))
	if err != nil {
		return "", errors.Wrap(err, "payments: build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "payments: create link")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("payments: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out paymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "payments: decode response")
	}
	if out.Status != "success" || out.Data.Link == "" {
		return "", errors.Errorf("payments: provider refused: %s", out.Message)
	}
	return out.Data.Link, nil
}
