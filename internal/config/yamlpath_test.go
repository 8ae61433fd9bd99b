package config

import (
	"os"
	"strings"
	"testing"
)

func TestSetValuePreservesComments(t *testing.T) {
	writeConfig(t, "# my bot\nline:\n  webhook_path: /hook # keep\nlog:\n  level: debug\n")

	if err := SetServeLineConfig("sec", "tok"); err != nil {
		t.Fatalf("SetServeLineConfig: %v", err)
	}

	path, _ := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"# my bot", "# keep", "channel_secret: sec", "channel_access_token: tok", "level: debug"} {
		if !strings.Contains(content, want) {
			t.Errorf("config missing %q:\n%s", want, content)
		}
	}

	got, err := GetValue("line.webhook_path")
	if err != nil || got != "/hook" {
		t.Errorf("GetValue(line.webhook_path)=%q, %v", got, err)
	}
}

func TestSetValueCreatesFile(t *testing.T) {
	writeConfig(t, "")

	if err := SetServeBackendConfig("openai", "", "sk-1"); err != nil {
		t.Fatalf("SetServeBackendConfig: %v", err)
	}
	if got, _ := GetValue("backend.kind"); got != "openai" {
		t.Errorf("backend.kind=%q", got)
	}
	if got, _ := GetValue("backend.api_key"); got != "sk-1" {
		t.Errorf("backend.api_key=%q", got)
	}
	if _, err := GetValue("backend.base_url"); err == nil {
		t.Error("empty base_url should not be written")
	}
}

func TestGetValueErrors(t *testing.T) {
	writeConfig(t, "")
	if _, err := GetValue("line.channel_secret"); err == nil {
		t.Error("expected error when config file is missing")
	}

	writeConfig(t, "line:\n  channel_secret: x\n")
	if _, err := GetValue("line"); err == nil || !strings.Contains(err.Error(), "not a scalar") {
		t.Errorf("GetValue(line) err=%v, want not a scalar", err)
	}
	if _, err := GetValue("line.missing"); err == nil || !strings.Contains(err.Error(), "key not found") {
		t.Errorf("GetValue(line.missing) err=%v, want key not found", err)
	}
}
