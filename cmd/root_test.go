package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/lawstudy/internal/syncengine"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PARTICIPANTS", "alice,bob")
	t.Setenv("LOCAL_PATH", filepath.Join(dir, "state.json"))
	t.Setenv("REMOTE_DRIVER", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("STUDY_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(dir, "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestDeckListsNewCards(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "deck", "--user", "alice", "--subject", "torts")
	if err != nil {
		t.Fatalf("deck: %v", err)
	}
	for _, id := range []string{"torts_assault", "torts_battery", "torts_iied"} {
		if !strings.Contains(out, id) {
			t.Errorf("deck output missing %s:\n%s", id, out)
		}
	}
	if strings.Contains(out, "contracts_offer") {
		t.Errorf("deck should be limited to torts:\n%s", out)
	}
}

func TestRatePersistsProgress(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "rate", "--user", "alice", "--topic", "contracts_offer", "--rating", "easy")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !strings.Contains(out, "contracts_offer: mastery") {
		t.Errorf("unexpected rate output:\n%s", out)
	}

	out, err = run(t, dir, "stats", "--user", "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "1 studied") {
		t.Errorf("stats should count the rated topic:\n%s", out)
	}
	if !strings.Contains(out, "Streak:       1 days") {
		t.Errorf("first study should start a streak:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	dir := setupEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown user", []string{"deck", "--user", "carol"}, "unknown user"},
		{"missing user", []string{"stats"}, "--user is required"},
		{"bad rating", []string{"rate", "--user", "alice", "--topic", "torts_assault", "--rating", "perfect"}, "unknown confidence"},
		{"unknown topic", []string{"rate", "--user", "alice", "--topic", "nope", "--rating", "hard"}, "unknown topic"},
		{"bad challenge type", []string{"challenge", "create", "--user", "alice", "--type", "chess"}, "unknown challenge type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSyncWithoutRemote(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, dir, "sync")
	if !errors.Is(err, syncengine.ErrLocalOnly) {
		t.Fatalf("expected ErrLocalOnly, got %v", err)
	}
}

func TestChallengeCreateAndList(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "challenge", "create", "--user", "alice", "--type", "weekly_topics", "--target", "3")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "target 3") {
		t.Errorf("unexpected create output:\n%s", out)
	}

	out, err = run(t, dir, "challenge", "list", "--user", "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "weekly_topics") || !strings.Contains(out, "alice (0)") {
		t.Errorf("challenge missing from list:\n%s", out)
	}
	if !strings.Contains(out, "1 active") {
		t.Errorf("summary missing:\n%s", out)
	}
}

func TestContentTopicsSearch(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "content", "topics", "--search", "offer")
	if err != nil {
		t.Fatalf("topics: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 || !strings.Contains(lines[1], "contracts_offer") {
		t.Errorf("best match should come first:\n%s", out)
	}
}

func TestRename(t *testing.T) {
	dir := setupEnv(t)

	if _, err := run(t, dir, "rename", "--user", "bob", "Bobby"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	out, err := run(t, dir, "stats", "--user", "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "bob is") {
		t.Errorf("partner status missing:\n%s", out)
	}
}
