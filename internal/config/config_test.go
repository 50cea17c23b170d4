package config

import (
	"errors"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	c := FromEnv(envMap(nil))
	if c.Port != "8080" {
		t.Errorf("Port = %q, want 8080", c.Port)
	}
	if c.OCRBaseURL != DefaultOCRBaseURL {
		t.Errorf("OCRBaseURL = %q, want %q", c.OCRBaseURL, DefaultOCRBaseURL)
	}
	if c.ChatModel != "sarvam-m" {
		t.Errorf("ChatModel = %q, want sarvam-m", c.ChatModel)
	}
	if c.PollInterval != 2*time.Second || c.MaxWait != 90*time.Second {
		t.Errorf("poll = %v/%v, want 2s/90s", c.PollInterval, c.MaxWait)
	}
	if c.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", c.HTTPTimeout)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	c := FromEnv(envMap(map[string]string{
		"PORT":                "9000",
		"SARVAM_OCR_BASE_URL": "http://localhost:1234/job/v1/",
		"OCR_POLL_INTERVAL":   "500ms",
		"OCR_MAX_WAIT":        "3m",
		"MAX_PDF_PAGES":       "20",
	}))
	if c.Port != "9000" {
		t.Errorf("Port = %q, want 9000", c.Port)
	}
	if c.OCRBaseURL != "http://localhost:1234/job/v1" {
		t.Errorf("OCRBaseURL = %q, want trailing slash trimmed", c.OCRBaseURL)
	}
	if c.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", c.PollInterval)
	}
	if c.MaxWait != 3*time.Minute {
		t.Errorf("MaxWait = %v, want 3m", c.MaxWait)
	}
	if c.MaxPDFPages != 20 {
		t.Errorf("MaxPDFPages = %d, want 20", c.MaxPDFPages)
	}
}

func TestFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	c := FromEnv(envMap(map[string]string{
		"OCR_POLL_INTERVAL": "soon",
		"OCR_MAX_WAIT":      "-5s",
		"MAX_PDF_PAGES":     "many",
	}))
	if c.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want default 2s", c.PollInterval)
	}
	if c.MaxWait != 90*time.Second {
		t.Errorf("MaxWait = %v, want default 90s", c.MaxWait)
	}
	if c.MaxPDFPages != 0 {
		t.Errorf("MaxPDFPages = %d, want 0", c.MaxPDFPages)
	}
}

func TestAPIKey_Missing(t *testing.T) {
	for _, v := range []string{"", "   ", "your_key_here", "your_sarvam_key_here"} {
		c := FromEnv(envMap(map[string]string{"SARVAM_API_KEY": v}))
		if _, err := c.APIKey(); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("APIKey() with %q: err = %v, want ErrMissingAPIKey", v, err)
		}
	}
}

func TestAPIKey_Present(t *testing.T) {
	c := FromEnv(envMap(map[string]string{"SARVAM_API_KEY": "sk_live_123456789"}))
	key, err := c.APIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk_live_123456789" {
		t.Errorf("key = %q, want sk_live_123456789", key)
	}
	if got := c.MaskedKey(); got != "sk_l...6789" {
		t.Errorf("MaskedKey = %q, want sk_l...6789", got)
	}
}
