package transcriber

import "strings"

func normalizeDeepgramLanguage(code string) string {
	if code == "" {
		return ""
	}
	if strings.EqualFold(code, "en") || strings.EqualFold(code, "en-us") || strings.EqualFold(code, "en_us") {
		return "en-US"
	}
	return code
}

// googleRegionDefaults maps bare ISO-639-1 codes to the BCP-47 tag Google Speech expects.
var googleRegionDefaults = map[string]string{
	"en": "en-US", "es": "es-ES", "fr": "fr-FR", "de": "de-DE", "it": "it-IT",
	"pt": "pt-BR", "ja": "ja-JP", "ko": "ko-KR", "nl": "nl-NL", "ru": "ru-RU",
	"zh": "cmn-Hans-CN", "hi": "hi-IN", "sv": "sv-SE", "pl": "pl-PL", "tr": "tr-TR",
}

// normalizeGoogleLanguage returns a BCP-47 tag. Empty means en-US because
// Speech v2 requires at least one language code.
func normalizeGoogleLanguage(code string) string {
	if code == "" {
		return "en-US"
	}
	code = strings.ReplaceAll(code, "_", "-")
	if tag, ok := googleRegionDefaults[strings.ToLower(code)]; ok {
		return tag
	}
	return code
}
