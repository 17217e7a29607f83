package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"curator/internal/config"
	"curator/internal/daemon"
	"curator/internal/scheduler"
	"curator/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlibrary_dir = %q\npeople_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n[refresh]\nparse_concurrency = %d\nworkers = %d\n\n[watch]\nenabled = false\n",
		cfg.Paths.LibraryDir,
		cfg.Paths.PeopleDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Refresh.ParseConcurrency,
		cfg.Refresh.Workers,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func TestCLIScanRefreshStatusShow(t *testing.T) {
	env := setupCLITestEnv(t)
	root := env.cfg.PeopleRoot()
	testsupport.WritePersonDescriptor(t, root, "jdoe", testsupport.PersonXML("Jane Doe",
		"<Overview>Character actor.</Overview>",
		"<PremiereDate>1970-05-04</PremiereDate>",
		"<Genres>drama|comedy</Genres>",
	))
	testsupport.MkdirAll(t, filepath.Join(root, "Empty Folder"))

	out, err := runCLI(t, env.configPath, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "2 discovered, 2 added, 0 removed")

	out, err = runCLI(t, env.configPath, "status", "--stale")
	if err != nil {
		t.Fatalf("status --stale: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "jdoe")
	if strings.Contains(out, "Empty Folder") {
		t.Fatalf("entity without descriptor listed as stale:\n%s", out)
	}

	out, err = runCLI(t, env.configPath, "refresh")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	requireContains(t, out, "Refreshed")

	out, err = runCLI(t, env.configPath, "status", "--stale")
	if err != nil {
		t.Fatalf("status --stale after refresh: %v", err)
	}
	requireContains(t, out, "All entities are up to date")

	out, err = runCLI(t, env.configPath, "show", "Jane", "Doe")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Character actor.")
	requireContains(t, out, "1970-05-04")
	requireContains(t, out, "Drama, Comedy")
	requireContains(t, out, "refreshed")
}

func TestCLIRefreshReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePersonDescriptor(t, env.cfg.PeopleRoot(), "broken", "<Item><LocalTitle>")

	out, err := runCLI(t, env.configPath, "refresh")
	if err == nil || !strings.Contains(err.Error(), "1 entities failed") {
		t.Fatalf("expected failure error, got %v", err)
	}
	requireContains(t, out, "broken")
	requireContains(t, out, "descriptor parse failure")
}

func TestCLIShowUnknownEntity(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env.configPath, "show", "Nobody"); err == nil {
		t.Fatal("expected error for unknown entity")
	}
}

func TestCLICheck(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env.configPath, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "People directory")
	requireContains(t, out, "[OK]")
}

func TestCLIConfigInit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "curator.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to refuse overwrite")
	}

	out, err = runCLI(t, target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestCLIShowStructuredOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePersonDescriptor(t, env.cfg.PeopleRoot(), "jdoe", testsupport.PersonXML("Jane Doe",
		"<Tags><Tag>director</Tag></Tags>",
	))
	if _, err := runCLI(t, env.configPath, "refresh"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	out, err := runCLI(t, env.configPath, "show", "--output", "yaml", "Jane Doe")
	if err != nil {
		t.Fatalf("show yaml: %v", err)
	}
	requireContains(t, out, "name: Jane Doe")
	requireContains(t, out, "outcome: refreshed")
	requireContains(t, out, "- director")

	out, err = runCLI(t, env.configPath, "show", "-o", "json", "Jane Doe")
	if err != nil {
		t.Fatalf("show json: %v", err)
	}
	var view struct {
		Kind   string `json:"kind"`
		Person struct {
			Name string   `json:"name"`
			Tags []string `json:"tags"`
		} `json:"person"`
		History []struct {
			Outcome string `json:"outcome"`
		} `json:"history"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, out)
	}
	if view.Kind != "person" || view.Person.Name != "Jane Doe" || len(view.Person.Tags) != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.History) != 1 || view.History[0].Outcome != "refreshed" {
		t.Fatalf("unexpected history: %+v", view.History)
	}

	if _, err := runCLI(t, env.configPath, "show", "-o", "xml", "Jane Doe"); err == nil {
		t.Fatal("expected error for unsupported output format")
	}
}

func TestCLIShowSuggestsCloseNames(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePersonDescriptor(t, env.cfg.PeopleRoot(), "Jane Doe", testsupport.PersonXML("Jane Doe"))
	if _, err := runCLI(t, env.configPath, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err := runCLI(t, env.configPath, "show", "Jnae", "Doe")
	if err == nil || !strings.Contains(err.Error(), `did you mean "Jane Doe"`) {
		t.Fatalf("expected suggestion, got %v", err)
	}
}

func TestCLIConfigShowPrintsEffectiveValues(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[refresh]")
	requireContains(t, out, fmt.Sprintf("parse_concurrency = %d", env.cfg.Refresh.ParseConcurrency))
	requireContains(t, out, env.cfg.Paths.StateDir)
}

// holdDaemonLock takes the daemon lock the way a running curatord would.
func holdDaemonLock(t *testing.T, cfg *config.Config) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })
}

func TestCLIRefusesWritesWhileDaemonRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePersonDescriptor(t, env.cfg.PeopleRoot(), "jdoe", testsupport.PersonXML("Jane Doe"))
	holdDaemonLock(t, env.cfg)

	for _, args := range [][]string{{"refresh"}, {"refresh", "--force"}, {"scan"}} {
		_, err := runCLI(t, env.configPath, args...)
		if err == nil {
			t.Fatalf("%v: expected refusal while the daemon lock is held", args)
		}
		requireContains(t, err.Error(), "curatord is running")
	}

	store := testsupport.MustOpenCatalog(t, env.cfg)
	records, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected catalog untouched, got %d records", len(records))
	}
}

func TestCLIStatusRendersPublishedDaemonStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	holdDaemonLock(t, env.cfg)

	now := time.Now()
	published := daemon.Status{
		Running:    true,
		LastScanAt: now,
		LastRunAt:  now,
		LastRun:    &scheduler.Summary{Total: 3, Refreshed: 2, UpToDate: 1},
		LastError:  "library scan failed: permission denied",
	}
	data, err := json.Marshal(published)
	if err != nil {
		t.Fatalf("marshal status: %v", err)
	}
	if err := os.WriteFile(env.cfg.StatusPath(), data, 0o644); err != nil {
		t.Fatalf("write status: %v", err)
	}

	out, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "Last run:")
	requireContains(t, out, "2 refreshed, 1 up to date, 0 failed")
	requireContains(t, out, "permission denied")
}
