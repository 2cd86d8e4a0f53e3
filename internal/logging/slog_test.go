package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	if WithOperation(logger, "token.refresh") == nil {
		t.Error("WithOperation returned nil")
	}
	if WithTool(logger, "check_gmail") == nil {
		t.Error("WithTool returned nil")
	}
	if WithProvider(logger, "weather") == nil {
		t.Error("WithProvider returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("token.refresh"), KeyOperation, "token.refresh"},
		{"provider", Provider("geolocation"), KeyProvider, "geolocation"},
		{"tool", Tool("check_gmail"), KeyTool, "check_gmail"},
		{"transport", Transport("stdio"), KeyTransport, "stdio"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError || attr.Value.String() != "boom" {
		t.Errorf("Err() = %v", attr)
	}

	nilAttr := Err(nil)
	if nilAttr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", nilAttr.Key)
	}
}

func TestAnonymizeUserID(t *testing.T) {
	if got := AnonymizeUserID(""); got != "" {
		t.Errorf("AnonymizeUserID(\"\") = %q", got)
	}

	a := AnonymizeUserID("alice@example.com")
	b := AnonymizeUserID("alice@example.com")
	c := AnonymizeUserID("bob@example.com")
	if a != b {
		t.Error("hash should be stable")
	}
	if a == c {
		t.Error("different users should hash differently")
	}
	if !strings.HasPrefix(a, "user:") || strings.Contains(a, "alice") {
		t.Errorf("unexpected anonymized value %q", a)
	}
	if UserHash("alice@example.com").Value.String() != a {
		t.Error("UserHash should use AnonymizeUserID")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q", got)
	}
	if got := SanitizeToken("ya29.secret"); got != "[token:11 chars]" {
		t.Errorf("SanitizeToken() = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	var text, js bytes.Buffer

	New(&text, slog.LevelInfo, FormatText).Info("hello", Tool("get_weather"))
	if !strings.Contains(text.String(), "tool=get_weather") {
		t.Errorf("text output = %q", text.String())
	}

	New(&js, slog.LevelInfo, FormatJSON).Info("hello", Tool("get_weather"))
	if !strings.Contains(js.String(), `"tool":"get_weather"`) {
		t.Errorf("json output = %q", js.String())
	}

	var quiet bytes.Buffer
	New(&quiet, slog.LevelWarn, FormatText).Info("dropped")
	if quiet.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", quiet.String())
	}
}
