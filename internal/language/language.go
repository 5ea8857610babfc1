package language

import "strings"

// Language is a base language accepted by the speech backends.
type Language struct {
	Code string // ISO 639-1 code, e.g. "en"
	Name string
}

// Locale is a BCP-47 tag offered in the configuration menu.
type Locale struct {
	Tag  string // e.g. "en-US"
	Name string
}

var languages = []Language{
	{"ar", "Arabic"}, {"bg", "Bulgarian"}, {"bn", "Bengali"}, {"ca", "Catalan"},
	{"cs", "Czech"}, {"da", "Danish"}, {"de", "German"}, {"el", "Greek"},
	{"en", "English"}, {"es", "Spanish"}, {"et", "Estonian"}, {"fa", "Persian"},
	{"fi", "Finnish"}, {"fr", "French"}, {"he", "Hebrew"}, {"hi", "Hindi"},
	{"hr", "Croatian"}, {"hu", "Hungarian"}, {"id", "Indonesian"}, {"it", "Italian"},
	{"ja", "Japanese"}, {"ko", "Korean"}, {"lt", "Lithuanian"}, {"lv", "Latvian"},
	{"ms", "Malay"}, {"nl", "Dutch"}, {"no", "Norwegian"}, {"pl", "Polish"},
	{"pt", "Portuguese"}, {"ro", "Romanian"}, {"ru", "Russian"}, {"sk", "Slovak"},
	{"sl", "Slovenian"}, {"sv", "Swedish"}, {"ta", "Tamil"}, {"te", "Telugu"},
	{"th", "Thai"}, {"tr", "Turkish"}, {"uk", "Ukrainian"}, {"ur", "Urdu"},
	{"vi", "Vietnamese"}, {"zh", "Chinese"},
}

var locales = []Locale{
	{"en-US", "English (United States)"},
	{"en-GB", "English (United Kingdom)"},
	{"en-AU", "English (Australia)"},
	{"en-IN", "English (India)"},
	{"es-ES", "Spanish (Spain)"},
	{"es-MX", "Spanish (Mexico)"},
	{"fr-FR", "French (France)"},
	{"fr-CA", "French (Canada)"},
	{"de-DE", "German (Germany)"},
	{"it-IT", "Italian (Italy)"},
	{"pt-BR", "Portuguese (Brazil)"},
	{"pt-PT", "Portuguese (Portugal)"},
	{"nl-NL", "Dutch (Netherlands)"},
	{"sv-SE", "Swedish (Sweden)"},
	{"pl-PL", "Polish (Poland)"},
	{"ru-RU", "Russian (Russia)"},
	{"tr-TR", "Turkish (Turkey)"},
	{"ja-JP", "Japanese (Japan)"},
	{"ko-KR", "Korean (South Korea)"},
	{"zh-CN", "Chinese (Mainland China)"},
	{"hi-IN", "Hindi (India)"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages))
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
	}
}

// Split breaks a tag like "pt_br" or "pt-BR" into "pt" and "BR".
func Split(tag string) (base, region string) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	base, region, _ = strings.Cut(tag, "-")
	return strings.ToLower(base), strings.ToUpper(region)
}

// FromCode returns the base language of code, which may carry a region.
func FromCode(code string) (Language, bool) {
	base, _ := Split(code)
	lang, ok := codeIndex[base]
	return lang, ok
}

// IsValid accepts a known base language with an optional region of two
// letters or three digits ("es-419").
func IsValid(tag string) bool {
	if _, ok := FromCode(tag); !ok {
		return false
	}
	_, region := Split(tag)
	switch len(region) {
	case 0:
		return true
	case 2:
		return isLetters(region)
	case 3:
		return isDigits(region)
	default:
		return false
	}
}

// Country returns the lower-case store country implied by tag's region, or ""
// when the tag has no two-letter region.
func Country(tag string) string {
	_, region := Split(tag)
	if len(region) != 2 || !isLetters(region) {
		return ""
	}
	return strings.ToLower(region)
}

// Locales returns the tags offered in the configuration menu.
func Locales() []Locale {
	result := make([]Locale, len(locales))
	copy(result, locales)
	return result
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
