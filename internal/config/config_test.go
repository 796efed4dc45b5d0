package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func missingEnv(t *testing.T) Options {
	t.Helper()
	return Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnv(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Local.Path != "data/lawstudy.json" {
		t.Errorf("Local.Path = %q", cfg.Local.Path)
	}
	if cfg.Sync.Interval != 30*time.Second || cfg.Sync.ChallengeInterval != time.Minute || cfg.Sync.StreakCheckAt != "00:00" {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Study.DeckSize != 20 {
		t.Errorf("DeckSize = %d, want 20", cfg.Study.DeckSize)
	}
	if ok, _ := cfg.RemoteEnabled(); ok {
		t.Error("RemoteEnabled() = true without a driver")
	}
	if len(cfg.Participants) != 0 || len(cfg.Telegram.Chats) != 0 {
		t.Errorf("participants = %v, chats = %v", cfg.Participants, cfg.Telegram.Chats)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PARTICIPANTS", "alice, bob")
	t.Setenv("REMOTE_DRIVER", "postgres")
	t.Setenv("REMOTE_DSN", "postgres://study@localhost/law?sslmode=disable")
	t.Setenv("SYNC_INTERVAL", "45s")
	t.Setenv("STUDY_DECK_SIZE", "15")
	t.Setenv("STUDY_TIMEZONE", "UTC")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHATS", "alice:100, bob:-200")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(missingEnv(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Participants, []string{"alice", "bob"}) {
		t.Errorf("Participants = %v", cfg.Participants)
	}
	if ok, err := cfg.RemoteEnabled(); !ok || err != nil {
		t.Errorf("RemoteEnabled() = %v, %v", ok, err)
	}
	if db := cfg.DatabaseConfig(); db.Driver != "postgres" || db.DSN == "" {
		t.Errorf("DatabaseConfig() = %+v", db)
	}
	if cfg.Sync.Interval != 45*time.Second || cfg.Study.DeckSize != 15 {
		t.Errorf("Sync.Interval = %v, DeckSize = %d", cfg.Sync.Interval, cfg.Study.DeckSize)
	}
	if want := map[string]int64{"alice": 100, "bob": -200}; !reflect.DeepEqual(cfg.Telegram.Chats, want) {
		t.Errorf("Chats = %v, want %v", cfg.Telegram.Chats, want)
	}
	if cfg.Telegram.BotToken != "token" || cfg.Log.Format != "json" {
		t.Errorf("Telegram = %+v, Log = %+v", cfg.Telegram, cfg.Log)
	}
	if loc, _ := cfg.Location(); loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CONTENT_PATH=/srv/law.json\nNOTIFICATION_START_HOUR=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("CONTENT_PATH")
		os.Unsetenv("NOTIFICATION_START_HOUR")
	})

	cfg, err := Load(Options{EnvFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Content.Path != "/srv/law.json" || cfg.Notification.StartHour != 9 {
		t.Errorf("Content = %+v, Notification = %+v", cfg.Content, cfg.Notification)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lawstudy.yaml")
	data := `participants: [alice, bob]
remote:
  driver: sqlite3
  path: /tmp/shared.db
telegram:
  chats:
    alice: 100
study:
  deck_size: 10
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := missingEnv(t)
	opts.ConfigFile = path
	cfg, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Participants, []string{"alice", "bob"}) {
		t.Errorf("Participants = %v", cfg.Participants)
	}
	if cfg.Remote.Driver != "sqlite3" || cfg.Remote.Path != "/tmp/shared.db" || cfg.Study.DeckSize != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Telegram.Chats["alice"] != 100 {
		t.Errorf("Chats = %v", cfg.Telegram.Chats)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"deck size", "STUDY_DECK_SIZE", "0"},
		{"timezone", "STUDY_TIMEZONE", "Mars/Olympus"},
		{"hour", "NOTIFICATION_END_HOUR", "24"},
		{"log format", "LOG_FORMAT", "xml"},
		{"chats", "TELEGRAM_CHATS", "alice"},
		{"chat id", "TELEGRAM_CHATS", "alice:abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(missingEnv(t)); err == nil {
				t.Errorf("Load() with %s=%s error = nil", tt.key, tt.value)
			}
		})
	}
}

func TestUnsupportedRemoteIsLocalOnly(t *testing.T) {
	t.Setenv("REMOTE_DRIVER", "oracle")
	cfg, err := Load(missingEnv(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ok, err := cfg.RemoteEnabled(); ok || err == nil {
		t.Errorf("RemoteEnabled() = %v, %v", ok, err)
	}
}
