package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrGateway marks failures on the gateway side of a session request.
var ErrGateway = errors.New("payment gateway error")

// SessionItem is one line of the checkout session.
type SessionItem struct {
	ID       string
	Name     string
	Price    int64
	Quantity int
}

type SessionRequest struct {
	Reference     string
	GrossAmount   int64
	Items         []SessionItem
	CustomerEmail string
	CustomerName  string
}

// Session is passed back to the client unchanged.
type Session struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// SnapClient creates hosted checkout sessions.
type SnapClient struct {
	BaseURL   string
	ServerKey string
	HTTP      *http.Client
}

func NewSnapClient(baseURL, serverKey string, timeout time.Duration) *SnapClient {
	return &SnapClient{
		BaseURL:   baseURL,
		ServerKey: serverKey,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type snapCustomer struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type snapRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	ItemDetails        []snapItem             `json:"item_details"`
	CustomerDetails    snapCustomer           `json:"customer_details"`
}

type snapError struct {
	ErrorMessages []string `json:"error_messages"`
}

func (c *SnapClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	const op = "payment.SnapClient.CreateSession"

	body := snapRequest{
		TransactionDetails: snapTransactionDetails{
			OrderID:     req.Reference,
			GrossAmount: req.GrossAmount,
		},
		CustomerDetails: snapCustomer{FirstName: req.CustomerName, Email: req.CustomerEmail},
	}
	for _, it := range req.Items {
		body.ItemDetails = append(body.ItemDetails, snapItem{
			ID:       it.ID,
			Name:     truncate(it.Name, 50),
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/snap/v1/transactions", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.ServerKey, "")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var se snapError
		_ = json.Unmarshal(raw, &se)
		return nil, fmt.Errorf("%s: %w: status %d: %v", op, ErrGateway, resp.StatusCode, se.ErrorMessages)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: %w: decode: %v", op, ErrGateway, err)
	}
	if s.Token == "" {
		return nil, fmt.Errorf("%s: %w: empty token", op, ErrGateway)
	}
	return &s, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
