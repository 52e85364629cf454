package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/notifier"
)

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Name(t *testing.T) {
	e := New("smtp.example.com", 587, "", "", "from@example.com", []string{"to@example.com"})
	if e.Name() != "email" {
		t.Errorf("expected 'email', got %s", e.Name())
	}
}

func TestEmail_Init_RequiredFields(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{}})
	if err == nil {
		t.Error("expected error for missing required fields")
	}
}

func TestEmail_Init_WithConfig(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{
		Params: map[string]any{
			"host": "smtp.example.com",
			"port": "2525",
			"from": "etfbot@example.com",
			"to":   []any{"a@example.com", " b@example.com "},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.host != "smtp.example.com" {
		t.Errorf("expected host smtp.example.com, got %s", e.host)
	}
	if e.port != 2525 {
		t.Errorf("expected port 2525, got %d", e.port)
	}
	if len(e.to) != 2 || e.to[1] != "b@example.com" {
		t.Errorf("unexpected recipients %v", e.to)
	}
}

func TestEmail_Init_DefaultPortAndCommaRecipients(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{
		"host": "smtp.example.com",
		"from": "etfbot@example.com",
		"to":   "a@example.com,b@example.com",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.port != defaultPort {
		t.Errorf("expected default port, got %d", e.port)
	}
	if len(e.to) != 2 {
		t.Errorf("expected 2 recipients, got %v", e.to)
	}
}

func report() notifier.Report {
	return notifier.Report{
		RunID:   "run-1",
		Mode:    core.ModeLive,
		Time:    time.Date(2024, 5, 6, 22, 25, 0, 0, time.UTC),
		Capital: 10000,
		Trades: []core.Trade{
			{Ticker: "VOO", Action: core.ActionBuy, Shares: 40, Price: 50, Reason: "live signal"},
			{Ticker: "IAU", Action: core.ActionSell, Shares: 12, Price: 40.125, Reason: "live signal"},
		},
		Summary: "2 trade(s) logged",
	}
}

func TestEmail_FormatReport(t *testing.T) {
	formatted := formatReport(report())

	for _, want := range []string{"run-1", "Capital: $10000.00", "BOUGHT", "VOO", "SOLD", "IAU", "$40.13", "2 trade(s) logged"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("formatted report missing %q:\n%s", want, formatted)
		}
	}
}

func TestEmail_FormatReport_NoTrades(t *testing.T) {
	r := report()
	r.Trades = nil
	if !strings.Contains(formatReport(r), "No trades today.") {
		t.Error("empty report should say no trades")
	}
	if got := subject(r); got != "etfbot live 2024-05-06: no trades" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestEmail_Notify(t *testing.T) {
	e := New("smtp.example.com", 2525, "user", "pass", "etfbot@example.com", []string{"to@example.com"})

	var gotAddr string
	var gotAuth smtp.Auth
	var gotMsg string
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotMsg = addr, a, string(msg)
		return nil
	}

	if err := e.Notify(context.Background(), report()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if gotAddr != "smtp.example.com:2525" {
		t.Errorf("unexpected addr %s", gotAddr)
	}
	if gotAuth == nil {
		t.Error("expected auth when username is set")
	}
	if !strings.Contains(gotMsg, "Subject: etfbot live 2024-05-06: 2 trade(s)\r\n") {
		t.Errorf("unexpected message headers:\n%s", gotMsg)
	}
	if !strings.Contains(gotMsg, "\r\nBOUGHT") {
		t.Error("body lines should use CRLF")
	}
}

func TestEmail_Notify_Errors(t *testing.T) {
	e := New("smtp.example.com", 25, "", "", "etfbot@example.com", []string{"to@example.com"})
	calls := 0
	e.send = func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		return errors.New("connection refused")
	}

	if err := e.Notify(context.Background(), report()); err == nil {
		t.Error("expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Notify(ctx, report()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("cancelled notify must not dial, calls=%d", calls)
	}
}
