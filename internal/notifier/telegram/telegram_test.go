package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Init(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"valid", map[string]any{"bot_token": "tok", "chat_id": "42"}, false},
		{"missing token", map[string]any{"chat_id": "42"}, true},
		{"missing chat", map[string]any{"bot_token": "tok"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &Telegram{}
			err := tg.Init(notifier.Config{Type: "telegram", Params: tt.params})
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatReport(t *testing.T) {
	ts := time.Date(2024, 5, 6, 22, 25, 0, 0, time.UTC)

	empty := formatReport(notifier.Report{Mode: core.ModeLive, Time: ts})
	if !strings.Contains(empty, "No trades today.") {
		t.Errorf("expected no-trade message, got %q", empty)
	}

	msg := formatReport(notifier.Report{
		Mode: core.ModeSimulate,
		Time: ts,
		Trades: []core.Trade{
			{Ticker: "VOO", Action: core.ActionBuy, Price: 50, Shares: 40, Reason: "signal buy"},
			{Ticker: "IAU", Action: core.ActionSell, Price: 40.5, Shares: 12, Reason: "signal sell"},
		},
	})
	if !strings.Contains(msg, "*VOO* BUY 40 @ $50.00") {
		t.Errorf("missing buy line in %q", msg)
	}
	if !strings.Contains(msg, "📉 *IAU* SELL 12 @ $40.50") {
		t.Errorf("missing sell line in %q", msg)
	}
}

func TestTelegram_Notify(t *testing.T) {
	var path string
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg := New("tok", "42")
	if err := tg.Init(notifier.Config{Params: map[string]any{"api_url": server.URL}}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := tg.Notify(context.Background(), notifier.Report{Mode: core.ModeShadow, Time: time.Now()}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if path != "/bottok/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if payload["chat_id"] != "42" || payload["parse_mode"] != "Markdown" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestTelegram_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	tg := New("tok", "42")
	tg.apiURL = server.URL

	if err := tg.Notify(context.Background(), notifier.Report{Time: time.Now()}); err == nil {
		t.Error("expected error for API failure")
	}
}
