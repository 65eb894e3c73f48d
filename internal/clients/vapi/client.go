package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/superconnector-backend/internal/platform/ctxutil"
	"github.com/yungbote/superconnector-backend/internal/platform/envutil"
	"github.com/yungbote/superconnector-backend/internal/platform/httpx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

// Client places outbound voice calls through the Vapi REST API.
type Client interface {
	StartCall(ctx context.Context, req StartCallRequest) (*Call, error)
}

type Config struct {
	APIKey        string
	BaseURL       string
	AssistantID   string
	PhoneNumberID string
	Timeout       time.Duration
	MaxRetries    int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:        envutil.String("VAPI_API_KEY", ""),
		BaseURL:       envutil.String("VAPI_BASE_URL", ""),
		AssistantID:   envutil.String("VAPI_ASSISTANT_ID", ""),
		PhoneNumberID: envutil.String("VAPI_PHONE_NUMBER_ID", ""),
		Timeout:       envutil.Seconds("VAPI_TIMEOUT_SECONDS", 20*time.Second),
		MaxRetries:    envutil.Int("VAPI_MAX_RETRIES", 2),
	}
}

type StartCallRequest struct {
	Number string
	Name   string
	// Variables are passed to the assistant as variableValues.
	Variables map[string]string
}

type Call struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type assistantOverrides struct {
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

type startCallBody struct {
	AssistantID        string              `json:"assistantId"`
	PhoneNumberID      string              `json:"phoneNumberId"`
	Customer           customer            `json:"customer"`
	AssistantOverrides *assistantOverrides `json:"assistantOverrides,omitempty"`
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing VAPI_API_KEY")
	}
	if strings.TrimSpace(cfg.AssistantID) == "" {
		return nil, fmt.Errorf("missing VAPI_ASSISTANT_ID")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, fmt.Errorf("missing VAPI_PHONE_NUMBER_ID")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.vapi.ai"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "VapiClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *client) StartCall(ctx context.Context, req StartCallRequest) (*Call, error) {
	number := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Number), "whatsapp:"))
	if number == "" {
		return nil, fmt.Errorf("vapi: customer number required")
	}
	body := startCallBody{
		AssistantID:   c.cfg.AssistantID,
		PhoneNumberID: c.cfg.PhoneNumberID,
		Customer:      customer{Number: number, Name: strings.TrimSpace(req.Name)},
	}
	if len(req.Variables) > 0 {
		body.AssistantOverrides = &assistantOverrides{VariableValues: req.Variables}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var out Call
	err = httpx.Retry(ctxutil.Default(ctx), c.cfg.MaxRetries, func(ctx context.Context) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/call/phone", bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, &httpx.StatusError{Provider: "vapi", StatusCode: resp.StatusCode, Body: string(b)}
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return resp, fmt.Errorf("vapi: decode call: %w", err)
		}
		return resp, nil
	}, func(attempt int, sleep time.Duration, err error) {
		c.log.Warn("Vapi request retrying", "attempt", attempt, "sleep", sleep.String(), "error", err.Error())
	})
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("vapi: response missing call id")
	}
	c.log.Info("Outbound call started", "call_id", out.ID, "phone", number)
	return &out, nil
}
