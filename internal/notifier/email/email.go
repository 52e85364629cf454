// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/newthinker/etfbot/internal/core"
	"github.com/newthinker/etfbot/internal/notifier"
)

const defaultPort = 587

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends run reports over SMTP
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host := notifier.StringParam(cfg.Params, "host"); host != "" {
		e.host = host
	}
	if port := notifier.IntParam(cfg.Params, "port"); port > 0 {
		e.port = port
	}
	if username := notifier.StringParam(cfg.Params, "username"); username != "" {
		e.username = username
	}
	if password := notifier.StringParam(cfg.Params, "password"); password != "" {
		e.password = password
	}
	if from := notifier.StringParam(cfg.Params, "from"); from != "" {
		e.from = from
	}
	if to := notifier.StringSliceParam(cfg.Params, "to"); len(to) > 0 {
		e.to = to
	}
	if e.port == 0 {
		e.port = defaultPort
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from and to are required")
	}
	return nil
}

// Notify mails the report. net/smtp takes no context, so cancellation is
// only honoured before the dial.
func (e *Email) Notify(ctx context.Context, report notifier.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.sendEmail(subject(report), formatReport(report))
}

func subject(report notifier.Report) string {
	day := report.Time.Format("2006-01-02")
	if len(report.Trades) == 0 {
		return fmt.Sprintf("etfbot %s %s: no trades", report.Mode, day)
	}
	return fmt.Sprintf("etfbot %s %s: %d trade(s)", report.Mode, day, len(report.Trades))
}

func formatReport(report notifier.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "etfbot %s run %s\n", report.Mode, report.RunID)
	fmt.Fprintf(&sb, "Time: %s\n", report.Time.Format("2006-01-02 15:04:05"))
	if report.Capital > 0 {
		fmt.Fprintf(&sb, "Capital: $%.2f\n", report.Capital)
	}
	sb.WriteString("\n")

	if len(report.Trades) == 0 {
		sb.WriteString("No trades today.\n")
	}
	for _, t := range report.Trades {
		verb := "BOUGHT"
		if t.Action == core.ActionSell {
			verb = "SOLD"
		}
		fmt.Fprintf(&sb, "%-6s %-5s %6d @ $%.2f  %s\n", verb, t.Ticker, t.Shares, t.Price, t.Reason)
	}
	if report.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", report.Summary)
	}
	return sb.String()
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		strings.ReplaceAll(body, "\n", "\r\n"),
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: send to %s: %w", addr, err)
	}
	return nil
}
