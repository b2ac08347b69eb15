package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetFlags(t *testing.T) {
	t.Helper()
	flagConfig = ""
	flagEndpoint = ""
	flagVerbose = false
	t.Cleanup(func() {
		flagConfig = ""
		flagEndpoint = ""
		flagVerbose = false
	})
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, "endpoint: https://file.example.com\nmodel: gpt-4o-mini\n")
	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig() error = %v", err)
	}
	if cfg.Endpoint != "https://file.example.com" || cfg.Model != "gpt-4o-mini" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadFileConfigMissingFileIsEmpty(t *testing.T) {
	cfg, err := loadFileConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadFileConfig() error = %v", err)
	}
	if cfg != (FileConfig{}) {
		t.Errorf("config = %+v, want zero value", cfg)
	}
}

func TestLoadFileConfigMalformed(t *testing.T) {
	path := writeConfigFile(t, "endpoint: [not\n")
	if _, err := loadFileConfig(path); err == nil {
		t.Fatal("loadFileConfig() error = nil, want parse error")
	}
}

func TestResolveEndpointPrecedence(t *testing.T) {
	resetFlags(t)
	fileCfg := FileConfig{Endpoint: "https://file.example.com"}

	// File config is the lowest tier.
	t.Setenv("FOUNDRY_ENDPOINT", "")
	got, err := resolveEndpoint(fileCfg)
	if err != nil || got != "https://file.example.com" {
		t.Errorf("resolveEndpoint() = %q, %v", got, err)
	}

	// Environment beats the file.
	t.Setenv("FOUNDRY_ENDPOINT", "https://env.example.com")
	got, err = resolveEndpoint(fileCfg)
	if err != nil || got != "https://env.example.com" {
		t.Errorf("resolveEndpoint() = %q, %v", got, err)
	}

	// Flag beats everything.
	flagEndpoint = "https://flag.example.com"
	got, err = resolveEndpoint(fileCfg)
	if err != nil || got != "https://flag.example.com" {
		t.Errorf("resolveEndpoint() = %q, %v", got, err)
	}
}

func TestResolveEndpointMissing(t *testing.T) {
	resetFlags(t)
	t.Setenv("FOUNDRY_ENDPOINT", "")
	if _, err := resolveEndpoint(FileConfig{}); err == nil {
		t.Fatal("resolveEndpoint() error = nil, want error")
	}
}

func TestResolveAPIKeyPrefersEnvironment(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set(keyringService, keyringAccount, "keyring-key"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}
	t.Setenv("FOUNDRY_API_KEY", "env-key")

	key, err := resolveAPIKey()
	if err != nil || key != "env-key" {
		t.Errorf("resolveAPIKey() = %q, %v", key, err)
	}

	t.Setenv("FOUNDRY_API_KEY", "")
	key, err = resolveAPIKey()
	if err != nil || key != "keyring-key" {
		t.Errorf("resolveAPIKey() = %q, %v", key, err)
	}
}

func TestResolveAPIKeyMissing(t *testing.T) {
	keyring.MockInit()
	keyring.Delete(keyringService, keyringAccount)
	t.Setenv("FOUNDRY_API_KEY", "")

	_, err := resolveAPIKey()
	if err == nil || !strings.Contains(err.Error(), "auth login") {
		t.Fatalf("resolveAPIKey() error = %v, want hint to run auth login", err)
	}
}

func TestAuthStatusReportsKeyringKey(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set(keyringService, keyringAccount, "super-secret-key-value"); err != nil {
		t.Fatalf("seed keyring: %v", err)
	}
	t.Setenv("FOUNDRY_API_KEY", "")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"auth", "status"})
	if err := root.Execute(); err != nil {
		t.Fatalf("auth status error = %v", err)
	}

	output := out.String()
	if strings.Contains(output, "super-secret-key-value") {
		t.Errorf("status leaked the key: %q", output)
	}
	if !strings.Contains(output, "system keyring") {
		t.Errorf("output = %q", output)
	}
}

func TestAuthLogoutWhenEmpty(t *testing.T) {
	keyring.MockInit()
	keyring.Delete(keyringService, keyringAccount)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"auth", "logout"})
	if err := root.Execute(); err != nil {
		t.Fatalf("auth logout error = %v", err)
	}
	if !strings.Contains(out.String(), "No stored API key") {
		t.Errorf("output = %q", out.String())
	}
}

func TestChatStreamsToStdout(t *testing.T) {
	resetFlags(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hello", " from", " foundry"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	t.Setenv("FOUNDRY_ENDPOINT", server.URL)
	t.Setenv("FOUNDRY_API_KEY", "test-key")
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"chat", "--config", cfgPath, "greet me"})
	if err := root.Execute(); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if got := out.String(); got != "Hello from foundry\n" {
		t.Errorf("output = %q", got)
	}
}

func TestChatNoStream(t *testing.T) {
	resetFlags(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Full reply"}}]}`))
	}))
	defer server.Close()

	t.Setenv("FOUNDRY_ENDPOINT", server.URL)
	t.Setenv("FOUNDRY_API_KEY", "test-key")
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"chat", "--config", cfgPath, "--no-stream", "greet me"})
	if err := root.Execute(); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if got := out.String(); got != "Full reply\n" {
		t.Errorf("output = %q", got)
	}
}

func TestEmbedSummaryOutput(t *testing.T) {
	resetFlags(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"object": "list", "model": "text-embedding-3-small",
			"data": [{"index": 0, "embedding": [0.1, 0.2, 0.3]}],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	t.Setenv("FOUNDRY_ENDPOINT", server.URL)
	t.Setenv("FOUNDRY_API_KEY", "test-key")
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"embed", "--config", cfgPath, "hello"})
	if err := root.Execute(); err != nil {
		t.Fatalf("embed error = %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "3 dimensions") || !strings.Contains(output, "tokens used: 2") {
		t.Errorf("output = %q", output)
	}
}
