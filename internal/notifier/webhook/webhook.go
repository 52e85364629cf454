// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/etfbot/internal/notifier"
)

// Webhook posts each run report as JSON
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url := notifier.StringParam(cfg.Params, "url"); url != "" {
		w.url = url
	}
	if headers := notifier.StringMapParam(cfg.Params, "headers"); headers != nil {
		w.headers = headers
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

type tradePayload struct {
	Time   string `json:"time"`
	Ticker string `json:"ticker"`
	Action string `json:"action"`
	Price  string `json:"price"`
	Shares int64  `json:"shares"`
	Reason string `json:"reason"`
}

type reportPayload struct {
	Type    string         `json:"type"`
	RunID   string         `json:"run_id"`
	Mode    string         `json:"mode"`
	Time    string         `json:"time"`
	Capital string         `json:"capital"`
	Count   int            `json:"count"`
	Trades  []tradePayload `json:"trades"`
	Summary string         `json:"summary"`
}

func (w *Webhook) Notify(ctx context.Context, report notifier.Report) error {
	payload := reportPayload{
		Type:    "run",
		RunID:   report.RunID,
		Mode:    string(report.Mode),
		Time:    report.Time.Format(time.RFC3339),
		Capital: decimal.NewFromFloat(report.Capital).StringFixed(2),
		Count:   len(report.Trades),
		Trades:  make([]tradePayload, 0, len(report.Trades)),
		Summary: report.Summary,
	}
	for _, t := range report.Trades {
		payload.Trades = append(payload.Trades, tradePayload{
			Time:   t.Time.Format(time.RFC3339),
			Ticker: t.Ticker,
			Action: string(t.Action),
			Price:  decimal.NewFromFloat(t.Price).StringFixed(2),
			Shares: t.Shares,
			Reason: t.Reason,
		})
	}
	return w.post(ctx, payload)
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
