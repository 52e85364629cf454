package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/etfbot/internal/notifier"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      notifier.Config
		wantName string
		wantErr  bool
	}{
		{
			name:     "webhook",
			cfg:      notifier.Config{Type: "webhook", Params: map[string]any{"url": "http://example.com"}},
			wantName: "webhook",
		},
		{
			name:     "telegram",
			cfg:      notifier.Config{Type: "telegram", Params: map[string]any{"bot_token": "t", "chat_id": "1"}},
			wantName: "telegram",
		},
		{
			name: "email",
			cfg: notifier.Config{Type: "email", Params: map[string]any{
				"host": "smtp.example.com", "from": "etfbot@example.com", "to": []any{"me@example.com"},
			}},
			wantName: "email",
		},
		{name: "email missing recipients", cfg: notifier.Config{Type: "email", Params: map[string]any{"host": "smtp.example.com", "from": "a@b"}}, wantErr: true},
		{name: "webhook missing url", cfg: notifier.Config{Type: "webhook"}, wantErr: true},
		{name: "unknown", cfg: notifier.Config{Type: "pager"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, n.Name())
		})
	}
}

func TestBuild(t *testing.T) {
	reg, err := Build([]notifier.Config{
		{Type: "webhook", Params: map[string]any{"url": "http://example.com"}},
		{Type: "telegram", Params: map[string]any{"bot_token": "t", "chat_id": "1"}},
		{Type: "email", Params: map[string]any{"host": "smtp.example.com", "from": "a@b", "to": "c@d"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "telegram", "webhook"}, reg.Names())

	_, err = Build([]notifier.Config{
		{Type: "webhook", Params: map[string]any{"url": "http://a"}},
		{Type: "webhook", Params: map[string]any{"url": "http://b"}},
	})
	assert.Error(t, err, "duplicate notifier types are rejected")

	reg, err = Build(nil)
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
}
