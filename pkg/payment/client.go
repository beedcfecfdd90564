package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"library_catalog/pkg/circuitbreaker"
)

var (
	ErrInvalidStatusCode = errors.New("invalid status code")
	ErrMalformedResponse = errors.New("malformed response body")
)

type ClientConfig struct {
	URL            string
	Timeout        time.Duration
	MaxFails       int
	BreakerTimeout time.Duration
}

// Client talks to the payment processor over HTTP. 200 is an approval, 402 a
// decline; anything else counts against the circuit breaker.
type Client struct {
	lg *slog.Logger

	cb *circuitbreaker.CircuitBreaker

	conn *resty.Client
}

func NewClient(lg *slog.Logger, cfg ClientConfig) *Client {
	conn := resty.New().
		SetTransport(&http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 30 * time.Second,
		}).
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		lg:   lg,
		cb:   circuitbreaker.New(cfg.MaxFails, cfg.BreakerTimeout),
		conn: conn,
	}
}

func (c *Client) ProcessPayment(
	ctx context.Context, patronID string, amount decimal.Decimal, description string,
) (Charge, error) {
	var charge Charge
	err := c.cb.Execute(func() error {
		var err error
		charge, err = c.processPayment(ctx, patronID, amount, description)
		return err
	})
	if err != nil {
		c.lg.Warn("process payment failed", "patronId", patronID, "breaker", c.cb.State().String(), "err", err)
		return Charge{}, err
	}
	return charge, nil
}

func (c *Client) processPayment(
	ctx context.Context, patronID string, amount decimal.Decimal, description string,
) (Charge, error) {
	resp, err := c.conn.R().
		SetContext(ctx).
		SetBody(ChargeRequest{PatronID: patronID, Amount: amount, Description: description}).
		SetResult(&ChargeResponse{}).
		SetError(&ChargeResponse{}).
		Post("/api/v1/payments")
	if err != nil {
		return Charge{}, fmt.Errorf("failed to execute http request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		data, ok := resp.Result().(*ChargeResponse)
		if !ok || data == nil {
			return Charge{}, fmt.Errorf("%d: %w", resp.StatusCode(), ErrMalformedResponse)
		}
		return Charge{Approved: data.Approved, TransactionID: data.TransactionID, Message: data.Message}, nil
	case http.StatusPaymentRequired:
		return Charge{Approved: false, Message: declineMessage(resp)}, nil
	default:
		return Charge{}, fmt.Errorf("%d: %w", resp.StatusCode(), ErrInvalidStatusCode)
	}
}

func (c *Client) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Refund, error) {
	var refund Refund
	err := c.cb.Execute(func() error {
		var err error
		refund, err = c.refundPayment(ctx, transactionID, amount)
		return err
	})
	if err != nil {
		c.lg.Warn("refund payment failed", "transactionId", transactionID, "breaker", c.cb.State().String(), "err", err)
		return Refund{}, err
	}
	return refund, nil
}

func (c *Client) refundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Refund, error) {
	resp, err := c.conn.R().
		SetContext(ctx).
		SetBody(RefundRequest{TransactionID: transactionID, Amount: amount}).
		SetResult(&RefundResponse{}).
		SetError(&RefundResponse{}).
		Post("/api/v1/refunds")
	if err != nil {
		return Refund{}, fmt.Errorf("failed to execute http request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		data, ok := resp.Result().(*RefundResponse)
		if !ok || data == nil {
			return Refund{}, fmt.Errorf("%d: %w", resp.StatusCode(), ErrMalformedResponse)
		}
		return Refund{Approved: data.Approved, Message: data.Message}, nil
	case http.StatusPaymentRequired:
		return Refund{Approved: false, Message: declineMessage(resp)}, nil
	default:
		return Refund{}, fmt.Errorf("%d: %w", resp.StatusCode(), ErrInvalidStatusCode)
	}
}

func declineMessage(resp *resty.Response) string {
	var msg string
	switch data := resp.Error().(type) {
	case *ChargeResponse:
		if data != nil {
			msg = data.Message
		}
	case *RefundResponse:
		if data != nil {
			msg = data.Message
		}
	}
	if msg == "" {
		return "declined"
	}
	return msg
}

func (c *Client) BreakerState() circuitbreaker.State {
	return c.cb.State()
}
