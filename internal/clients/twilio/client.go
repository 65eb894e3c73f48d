package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/superconnector-backend/internal/platform/ctxutil"
	"github.com/yungbote/superconnector-backend/internal/platform/envutil"
	"github.com/yungbote/superconnector-backend/internal/platform/httpx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

const whatsappPrefix = "whatsapp:"

type Client interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error)
	SendSMS(ctx context.Context, to string, body string) (*Message, error)
	SendWhatsApp(ctx context.Context, to string, body string) (*Message, error)
	// ValidateSignature checks X-Twilio-Signature for a form webhook.
	ValidateSignature(fullURL string, form url.Values, signature string) bool
}

type Config struct {
	AccountSID          string
	AuthToken           string
	BaseURL             string
	DefaultFrom         string
	WhatsAppFrom        string
	MessagingServiceSID string
	StatusCallbackURL   string
	Timeout             time.Duration
	MaxRetries          int
}

func ConfigFromEnv() Config {
	return Config{
		AccountSID:          envutil.String("TWILIO_ACCOUNT_SID", ""),
		AuthToken:           envutil.String("TWILIO_AUTH_TOKEN", ""),
		BaseURL:             envutil.String("TWILIO_BASE_URL", ""),
		DefaultFrom:         envutil.String("TWILIO_FROM_NUMBER", ""),
		WhatsAppFrom:        envutil.String("TWILIO_WHATSAPP_FROM", ""),
		MessagingServiceSID: envutil.String("TWILIO_MESSAGING_SERVICE_SID", ""),
		StatusCallbackURL:   envutil.String("TWILIO_STATUS_CALLBACK_URL", ""),
		Timeout:             envutil.Seconds("TWILIO_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries:          envutil.Int("TWILIO_MAX_RETRIES", 3),
	}
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	}
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "TwilioClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type SendMessageRequest struct {
	To                  string
	From                string
	MessagingServiceSID string
	Body                string
	StatusCallbackURL   string
}

type Message struct {
	SID          string  `json:"sid,omitempty"`
	To           string  `json:"to,omitempty"`
	From         string  `json:"from,omitempty"`
	Body         string  `json:"body,omitempty"`
	Status       string  `json:"status,omitempty"`
	ErrorCode    *int    `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	DateCreated  string  `json:"date_created,omitempty"`
}

func (c *client) SendSMS(ctx context.Context, to string, body string) (*Message, error) {
	return c.SendMessage(ctx, SendMessageRequest{To: to, Body: body})
}

func (c *client) SendWhatsApp(ctx context.Context, to string, body string) (*Message, error) {
	from := strings.TrimSpace(c.cfg.WhatsAppFrom)
	if from == "" {
		from = strings.TrimSpace(c.cfg.DefaultFrom)
	}
	if from == "" {
		return nil, fmt.Errorf("twilio: TWILIO_WHATSAPP_FROM required")
	}
	return c.SendMessage(ctx, SendMessageRequest{
		To:   withWhatsAppPrefix(to),
		From: withWhatsAppPrefix(from),
		Body: body,
	})
}

func withWhatsAppPrefix(n string) string {
	n = strings.TrimSpace(n)
	if strings.HasPrefix(n, whatsappPrefix) {
		return n
	}
	return whatsappPrefix + n
}

func (c *client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	req.To = strings.TrimSpace(req.To)
	req.From = strings.TrimSpace(req.From)
	req.Body = strings.TrimSpace(req.Body)
	if req.To == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	if req.Body == "" {
		return nil, fmt.Errorf("twilio: Body required")
	}
	if req.From == "" {
		req.From = strings.TrimSpace(c.cfg.DefaultFrom)
	}
	if req.MessagingServiceSID == "" {
		req.MessagingServiceSID = strings.TrimSpace(c.cfg.MessagingServiceSID)
	}
	if req.StatusCallbackURL == "" {
		req.StatusCallbackURL = strings.TrimSpace(c.cfg.StatusCallbackURL)
	}
	if req.From == "" && req.MessagingServiceSID == "" {
		return nil, fmt.Errorf("twilio: sender required (From or MessagingServiceSID)")
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("Body", req.Body)
	if req.From != "" {
		form.Set("From", req.From)
	}
	if req.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", req.MessagingServiceSID)
	}
	if req.StatusCallbackURL != "" {
		form.Set("StatusCallback", req.StatusCallbackURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)
	return doForm[Message](c, ctx, http.MethodPost, endpoint, form)
}

func (c *client) ValidateSignature(fullURL string, form url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	mac := hmac.New(sha1.New, []byte(c.cfg.AuthToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ---------- HTTP / retry helpers ----------

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "twilio: <nil error>"
	}
	if e.APIError != nil && strings.TrimSpace(e.APIError.Message) != "" {
		if e.APIError.Code != 0 {
			return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
		}
		return fmt.Sprintf("twilio http %d: %s", e.StatusCode, e.APIError.Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func doForm[T any](c *client, ctx context.Context, method, urlStr string, form url.Values) (*T, error) {
	var out *T
	err := httpx.Retry(ctxutil.Default(ctx), c.cfg.MaxRetries, func(ctx context.Context) (*http.Response, error) {
		res, resp, err := doFormOnce[T](c, ctx, method, urlStr, form)
		out = res
		return resp, err
	}, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("Twilio request retrying",
			"url", urlStr,
			"attempt", attempt,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleep.String(),
			"error", err.Error(),
		)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func doFormOnce[T any](c *client, ctx context.Context, method, urlStr string, form url.Values) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && strings.TrimSpace(ae.Message) != "" {
			return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("twilio decode error: %w", err)
	}
	return &out, resp, nil
}
