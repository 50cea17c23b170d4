package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned on first use when SARVAM_API_KEY is unset or
// still holds the sample value.
var ErrMissingAPIKey = errors.New("SARVAM_API_KEY is not configured (set it in .env)")

const (
	DefaultOCRBaseURL  = "https://api.sarvam.ai/doc-digitization/job/v1"
	DefaultChatBaseURL = "https://api.sarvam.ai/v1"
	DefaultChatModel   = "sarvam-m"
)

var placeholderKeys = map[string]bool{
	"your_key_here":        true,
	"your_sarvam_key_here": true,
}

// Config holds everything read from the environment.
type Config struct {
	Port            string
	OCRBaseURL      string
	ChatBaseURL     string
	ChatModel       string
	PollInterval    time.Duration
	MaxWait         time.Duration
	HTTPTimeout     time.Duration
	TransferTimeout time.Duration
	MaxPDFPages     int

	apiKey string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load() // a missing .env is fine
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) *Config {
	c := &Config{
		Port:            orDefault(getenv("PORT"), "8080"),
		OCRBaseURL:      strings.TrimRight(orDefault(getenv("SARVAM_OCR_BASE_URL"), DefaultOCRBaseURL), "/"),
		ChatBaseURL:     strings.TrimRight(orDefault(getenv("SARVAM_CHAT_BASE_URL"), DefaultChatBaseURL), "/"),
		ChatModel:       orDefault(getenv("SARVAM_CHAT_MODEL"), DefaultChatModel),
		PollInterval:    duration(getenv, "OCR_POLL_INTERVAL", 2*time.Second),
		MaxWait:         duration(getenv, "OCR_MAX_WAIT", 90*time.Second),
		HTTPTimeout:     duration(getenv, "HTTP_TIMEOUT", 30*time.Second),
		TransferTimeout: duration(getenv, "TRANSFER_TIMEOUT", 120*time.Second),
		MaxPDFPages:     integer(getenv, "MAX_PDF_PAGES", 0),
		apiKey:          strings.TrimSpace(getenv("SARVAM_API_KEY")),
	}
	return c
}

// APIKey returns the subscription key. The check is deferred to first use so
// the server can start (and serve validation errors) without a key.
func (c *Config) APIKey() (string, error) {
	if c.apiKey == "" || placeholderKeys[c.apiKey] {
		return "", ErrMissingAPIKey
	}
	return c.apiKey, nil
}

// MaskedKey is safe to log.
func (c *Config) MaskedKey() string {
	key := c.apiKey
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func duration(getenv func(string) string, name string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s=%q, using %v", name, raw, def)
		return def
	}
	return d
}

func integer(getenv func(string) string, name string, def int) int {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s=%q, using %d", name, raw, def)
		return def
	}
	return n
}
