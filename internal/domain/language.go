package domain

import (
	"strings"
	"unicode"
)

// languageNames maps supported ISO 639-1 codes to display names.
var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
	"tr": "Turkish",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
	"nl": "Dutch",
	"pl": "Polish",
	"uk": "Ukrainian",
}

var languageAliases = map[string]string{
	"english":    "en",
	"russian":    "ru",
	"turkish":    "tr",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"chinese":    "zh",
	"japanese":   "ja",
	"korean":     "ko",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"ukrainian":  "uk",
}

// NormalizeLang lowercases a user-supplied language token and resolves
// full names to ISO codes. Returns "" when the language is not supported.
func NormalizeLang(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, ok := languageAliases[s]; ok {
		return code
	}
	if _, ok := languageNames[s]; ok {
		return s
	}
	return ""
}

// IsSupportedLang reports whether code is one of the supported ISO codes.
func IsSupportedLang(code string) bool {
	_, ok := languageNames[code]
	return ok
}

// LangName returns the display name of a supported language code.
func LangName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// SupportedLangs returns the supported language codes in a stable order.
func SupportedLangs() []string {
	return []string{
		"en", "ru", "tr", "es", "fr", "de", "it", "pt",
		"zh", "ja", "ko", "ar", "hi", "nl", "pl", "uk",
	}
}

// DetectLang guesses the source language of text from its script.
// The heuristic covers the scripts the bot meets in practice and falls
// back to English for plain Latin.
func DetectLang(text string) string {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			return "ru"
		case strings.ContainsRune("ğüşöçıİĞÜŞÖÇ", r):
			return "tr"
		case unicode.Is(unicode.Arabic, r):
			return "ar"
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			return "ja"
		case unicode.Is(unicode.Hangul, r):
			return "ko"
		case unicode.Is(unicode.Han, r):
			return "zh"
		case unicode.Is(unicode.Devanagari, r):
			return "hi"
		}
	}
	return "en"
}
