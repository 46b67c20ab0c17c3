package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	channelpkg "voicemorph/pkg/channel"
	"voicemorph/pkg/config"
	"voicemorph/pkg/dispatch"
)

type testAdapter struct{ name string }

func (a testAdapter) Name() string { return a.name }

func (a testAdapter) Run(_ context.Context, _ *dispatch.Dispatcher) error { return nil }

func TestEnabledAdaptersRequiresAtLeastOneChannel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if _, err := enabledAdapters(cfg, nil); err == nil {
		t.Fatal("expected error when no channels are enabled")
	}
}

func TestEnabledAdaptersRejectsTelegramWithoutToken(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Channels.Telegram.Enabled = true
	if _, err := enabledAdapters(cfg, nil); err == nil {
		t.Fatal("expected error when telegram is enabled without a token")
	}
}

func TestEnabledChannelNames(t *testing.T) {
	t.Parallel()

	adapters := []channelpkg.Adapter{testAdapter{name: "telegram"}, testAdapter{name: "discord"}}
	if got := enabledChannelNames(adapters); got != "telegram,discord" {
		t.Fatalf("enabledChannelNames = %q, want %q", got, "telegram,discord")
	}
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "in.ogg")
	destinationPath := filepath.Join(dir, "out.ogg")
	if err := os.WriteFile(sourcePath, []byte("audio"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := copyFile(sourcePath, destinationPath); err != nil {
		t.Fatalf("copyFile: %v", err)
	}

	content, err := os.ReadFile(destinationPath)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(content) != "audio" {
		t.Fatalf("destination content = %q", content)
	}
}
