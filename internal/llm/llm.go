package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"notescan/internal/config"
	"notescan/internal/lang"

	"github.com/sashabaranov/go-openai"
)

const (
	// MaxInputChars is how much note text callers should send. Assist does not
	// enforce it; use TruncateText before calling.
	MaxInputChars = 6000

	Temperature = 0.3
	MaxTokens   = 4096
)

var (
	// ErrEmptyCompletion means the model answered without any content.
	ErrEmptyCompletion = errors.New("no response from Sarvam chat model")
	// ErrInvalidMode is returned by ParseMode for anything but the four modes.
	ErrInvalidMode = errors.New("invalid mode. Use: summarize, explain, quiz, translate")
)

// Mode selects the transformation applied to the notes.
type Mode string

const (
	Summarize Mode = "summarize"
	Explain   Mode = "explain"
	Quiz      Mode = "quiz"
	Translate Mode = "translate"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{Summarize, Explain, Quiz, Translate}

// ParseMode validates a mode string. Matching is exact: "Quiz" is rejected.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := templates[m]; !ok {
		return "", ErrInvalidMode
	}
	return m, nil
}

// template renders the system instruction given the display names of the
// source and target languages.
type template func(source, target string) string

var templates = map[Mode]template{
	Summarize: func(source, _ string) string {
		return "You are an expert academic tutor. Summarize the following notes into clear, concise bullet points highlighting key concepts. " +
			"Keep the summary in the same language as the notes (" + source + "). " +
			"Use simple language a student can quickly revise from. Do not add information that is not present in the notes."
	},
	Explain: func(source, _ string) string {
		return "You are a patient, expert teacher. Explain the concepts in these notes in a clear, easy-to-understand way as if teaching a student. " +
			"Use simple analogies and examples. Respond in the same language as the notes (" + source + "). " +
			"Break down complex ideas into digestible parts. Add helpful context where needed but stay focused on what the notes cover."
	},
	Quiz: func(source, _ string) string {
		return "You are an exam preparation expert. Based on the following notes, generate 5-8 practice questions that test understanding of the key concepts. Include a mix of:\n" +
			"- Short answer questions\n" +
			"- True/False questions\n" +
			"- Fill in the blank questions\n" +
			"Provide the correct answers at the end. Write everything in the same language as the notes (" + source + ")."
	},
	Translate: func(_, target string) string {
		return "You are a professional translator specializing in Indian languages. Translate the following text into " + target + ". " +
			"Maintain the original meaning, structure, and any technical terminology. " +
			"Output only the translated text, nothing else. Do not add any commentary or notes."
	},
}

// Instruction renders the system message for mode. An unknown source language
// is named Hindi; a missing or unknown target is named English.
func Instruction(mode Mode, source, target lang.Code) (string, error) {
	tmpl, ok := templates[mode]
	if !ok {
		return "", ErrInvalidMode
	}
	return tmpl(lang.Name(source, "Hindi"), lang.Name(target, "English")), nil
}

// TruncateText cuts text to at most max characters (runes).
func TruncateText(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

// Request is one study-assist call.
type Request struct {
	Text     string    `json:"text"`
	Mode     Mode      `json:"mode"`
	Language lang.Code `json:"language"`
	Target   lang.Code `json:"targetLanguage,omitempty"`
}

// Assistant sends study requests to an OpenAI-compatible chat endpoint.
type Assistant struct {
	baseURL string
	model   string
	apiKey  func() (string, error)
	http    *http.Client
}

// NewAssistant builds an Assistant. The key is resolved on every call so a
// missing key surfaces as config.ErrMissingAPIKey at first use.
func NewAssistant(baseURL, model string, apiKey func() (string, error), timeout time.Duration) *Assistant {
	if baseURL == "" {
		baseURL = config.DefaultChatBaseURL
	}
	if model == "" {
		model = config.DefaultChatModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Assistant{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewAssistantFromConfig wires an Assistant to the environment configuration.
// Generation gets the transfer timeout since long notes take a while.
func NewAssistantFromConfig(cfg *config.Config) *Assistant {
	return NewAssistant(cfg.ChatBaseURL, cfg.ChatModel, cfg.APIKey, cfg.TransferTimeout)
}

// subscriptionKeyTransport adds Sarvam's key header next to the bearer token
// go-openai already sends.
type subscriptionKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *subscriptionKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("api-subscription-key", t.key)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

func (a *Assistant) client() (*openai.Client, error) {
	if a.apiKey == nil {
		return nil, config.ErrMissingAPIKey
	}
	key, err := a.apiKey()
	if err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = a.baseURL
	cfg.HTTPClient = &http.Client{
		Timeout:   a.http.Timeout,
		Transport: &subscriptionKeyTransport{key: key, base: a.http.Transport},
	}
	return openai.NewClientWithConfig(cfg), nil
}

// Assist makes exactly one chat completion: the mode's instruction as the
// system message and the notes as the user message.
func (a *Assistant) Assist(ctx context.Context, req Request) (string, error) {
	instruction, err := Instruction(req.Mode, req.Language, req.Target)
	if err != nil {
		return "", err
	}
	client, err := a.client()
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := cleanCompletion(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	log.Printf("Sarvam chat: mode=%s language=%s -> %d chars in %v (tokens: %d)",
		req.Mode, req.Language, len(content), time.Since(start).Round(time.Millisecond), resp.Usage.TotalTokens)
	return content, nil
}

// cleanCompletion drops a leading <think>...</think> reasoning block, which
// reasoning models may prepend to their answer.
func cleanCompletion(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "<think>") {
		if end := strings.Index(text, "</think>"); end >= 0 {
			text = strings.TrimSpace(text[end+len("</think>"):])
		}
	}
	return text
}
