package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	config "github.com/telecare/telehealth_api/configs"
	"github.com/telecare/telehealth_api/logger"
)

// Gateway is the subset of the PayOS merchant API the subscription flow needs.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error)
	GetPaymentLinkInfo(ctx context.Context, orderCode int64) (*PaymentLinkInfo, error)
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error
	VerifyWebhook(w *Webhook) error
}

type CreateLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	ExpiredAt   int64  `json:"expiredAt,omitempty"`
	Signature   string `json:"signature"`
}

type PaymentLink struct {
	CheckoutURL   string `json:"checkoutUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
	Status        string `json:"status"`
}

type Transaction struct {
	Reference           string `json:"reference"`
	Amount              int64  `json:"amount"`
	TransactionDateTime string `json:"transactionDateTime"`
}

type PaymentLinkInfo struct {
	OrderCode          int64         `json:"orderCode"`
	Amount             int64         `json:"amount"`
	AmountPaid         int64         `json:"amountPaid"`
	Status             string        `json:"status"`
	CancellationReason *string       `json:"cancellationReason"`
	Transactions       []Transaction `json:"transactions"`
}

// Webhook is the body PayOS posts to the webhook URL.
type Webhook struct {
	Code      string         `json:"code"`
	Desc      string         `json:"desc"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data"`
	Signature string         `json:"signature"`
}

// OrderCode reads data.orderCode, which PayOS sends as a JSON number.
func (w *Webhook) OrderCode() (int64, bool) {
	if w.Data == nil {
		return 0, false
	}
	switch v := w.Data["orderCode"].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func (w *Webhook) DataString(key string) string {
	if w.Data == nil || w.Data[key] == nil {
		return ""
	}
	return fmt.Sprint(w.Data[key])
}

type envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

var ErrInvalidSignature = errors.New("invalid webhook signature")

type PayOSClient struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	http        *http.Client
}

func NewPayOSClient(baseURL, clientID, apiKey, checksumKey string) *PayOSClient {
	return &PayOSClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func NewPayOSClientFromConfig() *PayOSClient {
	c := NewPayOSClient(
		config.Config("PAYOS_BASE_URL"),
		config.Config("PAYOS_CLIENT_ID"),
		config.Config("PAYOS_API_KEY"),
		config.Config("PAYOS_CHECKSUM_KEY"),
	)
	if !c.Configured() {
		logger.Log.Warn().Msg("⚠️ PayOS credentials missing, payment links will fail")
	}
	return c
}

// Configured reports whether all three merchant credentials are set.
func (c *PayOSClient) Configured() bool {
	return c.clientID != "" && c.apiKey != "" && c.checksumKey != ""
}

func (c *PayOSClient) CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error) {
	req.Signature = c.sign(map[string]string{
		"amount":      strconv.FormatInt(req.Amount, 10),
		"cancelUrl":   req.CancelURL,
		"description": req.Description,
		"orderCode":   strconv.FormatInt(req.OrderCode, 10),
		"returnUrl":   req.ReturnURL,
	})

	var link PaymentLink
	if err := c.do(ctx, http.MethodPost, "/v2/payment-requests", req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *PayOSClient) GetPaymentLinkInfo(ctx context.Context, orderCode int64) (*PaymentLinkInfo, error) {
	var info PaymentLinkInfo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v2/payment-requests/%d", orderCode), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *PayOSClient) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	body := map[string]string{"cancellationReason": reason}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode), body, nil)
}

// VerifyWebhook checks the signature over the sorted data fields.
func (c *PayOSClient) VerifyWebhook(w *Webhook) error {
	if w == nil || w.Data == nil || w.Signature == "" {
		return ErrInvalidSignature
	}
	fields := make(map[string]string, len(w.Data))
	for k, v := range w.Data {
		fields[k] = webhookValue(v)
	}
	expected := c.sign(fields)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(w.Signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign is exported for tests and tools that need to forge a valid webhook.
func (c *PayOSClient) Sign(fields map[string]string) string {
	return c.sign(fields)
}

func (c *PayOSClient) sign(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, []byte(c.checksumKey))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if t == "null" || t == "undefined" {
			return ""
		}
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func (c *PayOSClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("PayOS request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("PayOS returned %s: %s", resp.Status, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode PayOS response: %w", err)
	}
	if env.Code != "00" {
		return fmt.Errorf("PayOS error %s: %s", env.Code, env.Desc)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode PayOS data: %w", err)
		}
	}
	return nil
}
