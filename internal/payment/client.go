package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/alexanderramin/insurer/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// LineItem is one payable row of a checkout.
type LineItem struct {
	PolicyID  string
	Title     string
	UnitPrice domain.Money
}

// CheckoutRequest describes the coupon being paid.
type CheckoutRequest struct {
	CouponCode string
	Amount     domain.Money
	Items      []LineItem
	IssuedAt   time.Time
}

// Checkout is the provider's answer to CreateCheckout.
type Checkout struct {
	ID          string
	RedirectURL string
}

type Status string

const (
	StatusApproved  Status = "approved"
	StatusPending   Status = "pending"
	StatusInProcess Status = "in_process"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// PaidItem is one line of a fetched payment, read back from the checkout
// metadata.
type PaidItem struct {
	PolicyID string
	Amount   domain.Money
}

// Payment is a fetched provider payment.
type Payment struct {
	ID         string
	Status     Status
	CouponCode string
	Amount     domain.Money
	Items      []PaidItem
}

// Client is the external hosted checkout.
type Client interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// httpClient implements Client against a MercadoPago-compatible REST API.
type httpClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
}

// NewHTTPClient creates a Client for cfg. Calls fail with ErrNotConfigured
// when cfg has no access token.
func NewHTTPClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &httpClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

type preferenceItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type metadataItem struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Coupon string  `json:"coupon"`
}

type preferenceMetadata struct {
	CouponCode    string         `json:"coupon_code"`
	Subscriptions []metadataItem `json:"subscriptions"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items             []preferenceItem   `json:"items"`
	AutoReturn        string             `json:"auto_return"`
	BackURLs          backURLs           `json:"back_urls"`
	NotificationURL   string             `json:"notification_url"`
	ExternalReference string             `json:"external_reference"`
	Metadata          preferenceMetadata `json:"metadata"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type paymentResponse struct {
	ID                json.Number        `json:"id"`
	Status            string             `json:"status"`
	TransactionAmount float64            `json:"transaction_amount"`
	ExternalReference string             `json:"external_reference"`
	Metadata          preferenceMetadata `json:"metadata"`
}

func (c *httpClient) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: checkout has no items", ErrRejected)
	}
	body := c.preference(req)

	var resp preferenceResponse
	err := c.call(ctx, "create_checkout", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/checkout/preferences", req.CouponCode, body, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.InitPoint == "" {
		return nil, fmt.Errorf("%w: init_point is empty", ErrInvalidResponse)
	}
	return &Checkout{ID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

func (c *httpClient) preference(req CheckoutRequest) preferenceRequest {
	params := url.Values{}
	params.Set("coupon_id", req.CouponCode)
	params.Set("amount", req.Amount.String())
	params.Set("date", req.IssuedAt.UTC().Format(time.RFC3339))
	query := params.Encode()

	p := preferenceRequest{
		AutoReturn: "all",
		BackURLs: backURLs{
			Success: c.cfg.AppURL + "/payments/success?" + query,
			Failure: c.cfg.AppURL + "/payments/failure?" + query,
			Pending: c.cfg.AppURL + "/payments/pending?" + query,
		},
		NotificationURL:   c.cfg.AppURL + "/api/mercadopago/webhook",
		ExternalReference: req.CouponCode,
		Metadata:          preferenceMetadata{CouponCode: req.CouponCode},
	}
	for _, item := range req.Items {
		p.Items = append(p.Items, preferenceItem{
			ID:        item.PolicyID,
			Title:     item.Title,
			Quantity:  1,
			UnitPrice: item.UnitPrice.Units(),
		})
		p.Metadata.Subscriptions = append(p.Metadata.Subscriptions, metadataItem{
			ID:     item.PolicyID,
			Amount: item.UnitPrice.Units(),
			Coupon: req.CouponCode,
		})
	}
	return p
}

func (c *httpClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: payment id is empty", ErrRejected)
	}

	var resp paymentResponse
	err := c.call(ctx, "get_payment", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), "", nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	p := &Payment{
		ID:         resp.ID.String(),
		Status:     Status(resp.Status),
		CouponCode: resp.Metadata.CouponCode,
		Amount:     unitsToMoney(resp.TransactionAmount),
	}
	if p.CouponCode == "" {
		p.CouponCode = resp.ExternalReference
	}
	for _, s := range resp.Metadata.Subscriptions {
		p.Items = append(p.Items, PaidItem{PolicyID: s.ID, Amount: unitsToMoney(s.Amount)})
		if p.CouponCode == "" {
			p.CouponCode = s.Coupon
		}
	}
	return p, nil
}

// call runs fn with the per-call timeout and retry policy, tracing the whole
// operation as one span.
func (c *httpClient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}
	start := time.Now()

	ctx, span := otel.Tracer("insurer/payment").Start(ctx, "checkout."+op)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var lastErr error
	attempts := 0
	for attempts < 1+c.cfg.MaxRetries {
		attempts++
		lastErr = fn(ctx)
		if lastErr == nil {
			break
		}
		// Don't retry rejected requests or an expired deadline.
		if errors.Is(lastErr, ErrRejected) || errors.Is(lastErr, ErrInvalidResponse) || ctx.Err() != nil {
			break
		}
	}
	span.SetAttributes(attribute.Int("checkout.attempts", attempts))

	err := classify(ctx, lastErr, attempts)
	event := CallEvent{
		Operation: op,
		Attempts:  attempts,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
		ErrorCode: errorCode(err),
	}
	c.observer.OnCallComplete(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, event.ErrorCode)
	}
	return err
}

func classify(ctx context.Context, err error, attempts int) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ErrTimeout
	case errors.Is(err, ErrRejected), errors.Is(err, ErrInvalidResponse):
		return err
	case isConnectionError(err):
		return ErrUnavailable
	case attempts > 1:
		return fmt.Errorf("%w: %v", ErrRetryExhausted, err)
	default:
		return err
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("checkout provider returned status %d: %s", e.code, e.body)
}

func (c *httpClient) doJSON(ctx context.Context, method, path, idempotencyKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
		return fmt.Errorf("%w: %w", ErrRejected, &statusError{code: httpResp.StatusCode, body: string(respBody)})
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &statusError{code: httpResp.StatusCode, body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func unitsToMoney(units float64) domain.Money {
	return domain.Money(math.Round(units * 100))
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrRejected):
		return "REJECTED"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_RESPONSE"
	case errors.Is(err, ErrRetryExhausted):
		return "RETRY_EXHAUSTED"
	case errors.Is(err, ErrNotConfigured):
		return "NOT_CONFIGURED"
	default:
		return "UNKNOWN"
	}
}
