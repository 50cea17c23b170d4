package lang

// Code is a BCP-47 style language tag accepted by the OCR and chat APIs.
type Code string

const (
	Hindi     Code = "hi-IN"
	Marathi   Code = "mr-IN"
	Kannada   Code = "kn-IN"
	Tamil     Code = "ta-IN"
	Telugu    Code = "te-IN"
	Bengali   Code = "bn-IN"
	Gujarati  Code = "gu-IN"
	Malayalam Code = "ml-IN"
	Punjabi   Code = "pa-IN"
	Odia      Code = "or-IN"
	Urdu      Code = "ur-IN"
	English   Code = "en-IN"
)

// Default is used when a request does not name a document language.
const Default = Hindi

// Language pairs a code with its English display name.
type Language struct {
	Code Code   `json:"code"`
	Name string `json:"name"`
}

var languages = []Language{
	{Hindi, "Hindi"},
	{Marathi, "Marathi"},
	{Kannada, "Kannada"},
	{Tamil, "Tamil"},
	{Telugu, "Telugu"},
	{Bengali, "Bengali"},
	{Gujarati, "Gujarati"},
	{Malayalam, "Malayalam"},
	{Punjabi, "Punjabi"},
	{Odia, "Odia"},
	{Urdu, "Urdu"},
	{English, "English"},
}

var names = func() map[Code]string {
	m := make(map[Code]string, len(languages))
	for _, l := range languages {
		m[l.Code] = l.Name
	}
	return m
}()

// All returns the supported languages in display order.
func All() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Valid reports whether s is one of the supported codes.
func Valid(s string) bool {
	_, ok := names[Code(s)]
	return ok
}

// Name returns the display name for c, or fallback when c is unknown.
func Name(c Code, fallback string) string {
	if n, ok := names[c]; ok {
		return n
	}
	return fallback
}
