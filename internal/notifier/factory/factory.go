// Package factory builds notifiers from configuration.
package factory

import (
	"fmt"

	"github.com/newthinker/etfbot/internal/notifier"
	"github.com/newthinker/etfbot/internal/notifier/email"
	"github.com/newthinker/etfbot/internal/notifier/telegram"
	"github.com/newthinker/etfbot/internal/notifier/webhook"
)

// New creates a notifier based on configuration.
func New(cfg notifier.Config) (notifier.Notifier, error) {
	var n notifier.Notifier
	switch cfg.Type {
	case "webhook":
		n = webhook.New("", nil)
	case "telegram":
		n = telegram.New("", "")
	case "email":
		n = email.New("", 0, "", "", "", nil)
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
	if err := n.Init(cfg); err != nil {
		return nil, err
	}
	return n, nil
}

// Build creates a registry holding every configured notifier.
func Build(cfgs []notifier.Config) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	for _, cfg := range cfgs {
		n, err := New(cfg)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
