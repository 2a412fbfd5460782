package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDurationRoundTrips(t *testing.T) {
	var d ConfigDuration
	if err := json.Unmarshal([]byte(`"1500ms"`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.Duration.String() != "1.5s" {
		t.Errorf("got %s, want 1.5s", d.Duration)
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"1.5s"` {
		t.Errorf("got %s, want \"1.5s\"", b)
	}
}

func TestConfigDurationRejectsNumber(t *testing.T) {
	var d ConfigDuration
	err := json.Unmarshal([]byte(`500`), &d)
	if err != ErrDurationMustBeString {
		t.Errorf("got %v, want ErrDurationMustBeString", err)
	}
}

func TestConfigSecretInline(t *testing.T) {
	var s ConfigSecret
	if err := json.Unmarshal([]byte(`"sk-inline-value"`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Value() != "sk-inline-value" {
		t.Errorf("got %q, want sk-inline-value", s.Value())
	}
}

func TestConfigSecretFileIndirection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passphrase")
	if err := os.WriteFile(path, []byte("hunter2\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var s ConfigSecret
	doc := []byte(`"secret:` + path + `"`)
	if err := json.Unmarshal(doc, &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Value() != "hunter2" {
		t.Errorf("got %q, want hunter2 with trailing newline trimmed", s.Value())
	}
}

func TestLoadParsesFullDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responder.json")
	doc := `{
		"Responder": {"ID": "did:example:responder", "DefaultKeyID": "default", "Algorithm": "ed25519"},
		"Vault": {"DataFile": "data.json"},
		"Policy": {"PolicyFile": "policy.yaml"},
		"Vocabulary": {"Allowed": ["vqp:identity:v1", "vqp:financial:v1"]},
		"MaxQueryComplexity": 200,
		"CacheEnabled": true,
		"DebugAddr": ":8080"
	}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Responder.ID != "did:example:responder" {
		t.Errorf("got responder id %q", cfg.Responder.ID)
	}
	if len(cfg.Vocabulary.Allowed) != 2 {
		t.Errorf("got %d allowed vocabularies, want 2", len(cfg.Vocabulary.Allowed))
	}
	if cfg.MaxQueryComplexity != 200 {
		t.Errorf("got max complexity %d, want 200", cfg.MaxQueryComplexity)
	}
}

func TestSyslogConfigDefaults(t *testing.T) {
	var s SyslogConfig
	if s.StdoutOrDefault() != 6 {
		t.Errorf("got default stdout level %d, want LevelInfo (6)", s.StdoutOrDefault())
	}
	if s.SyslogOrDefault() != 3 {
		t.Errorf("got default syslog level %d, want LevelErr (3)", s.SyslogOrDefault())
	}
}
