package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram sends run reports through the Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token := notifier.StringParam(cfg.Params, "bot_token"); token != "" {
		t.botToken = token
	}
	if chatID := notifier.StringParam(cfg.Params, "chat_id"); chatID != "" {
		t.chatID = chatID
	}
	if apiURL := notifier.StringParam(cfg.Params, "api_url"); apiURL != "" {
		t.apiURL = strings.TrimRight(apiURL, "/")
	}
	if t.apiURL == "" {
		t.apiURL = defaultAPIURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Notify(ctx context.Context, report notifier.Report) error {
	return t.sendMessage(ctx, formatReport(report))
}

func formatReport(report notifier.Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*etfbot %s run* %s\n", report.Mode, report.Time.Format("2006-01-02 15:04")))
	if len(report.Trades) == 0 {
		sb.WriteString("No trades today.")
		return sb.String()
	}

	for _, trade := range report.Trades {
		mark := "📈"
		if trade.Action == core.ActionSell {
			mark = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* %s %d @ $%.2f (%s)\n",
			mark, trade.Ticker, trade.Action, trade.Shares, trade.Price, trade.Reason))
	}
	if report.Summary != "" {
		sb.WriteString(report.Summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
