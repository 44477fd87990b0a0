//go:build !integration

package domain

import "testing"

func TestNormalizeLang(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" Spanish ", "es"},
		{"russian", "ru"},
		{"xx", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeLang(tc.in); got != tc.want {
			t.Errorf("NormalizeLang(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDetectLang(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"cyrillic", "привет мир", "ru"},
		{"turkish", "günaydın", "tr"},
		{"arabic", "مرحبا", "ar"},
		{"japanese kana", "こんにちは", "ja"},
		{"korean hangul", "안녕하세요", "ko"},
		{"han defaults to chinese", "你好", "zh"},
		{"devanagari", "नमस्ते", "hi"},
		{"plain latin", "hello world", "en"},
		{"latin with punctuation", "hola, ¿qué tal?", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectLang(tc.text); got != tc.want {
				t.Errorf("DetectLang(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestSupportedLangs(t *testing.T) {
	langs := SupportedLangs()
	if len(langs) != 16 {
		t.Fatalf("expected 16 supported languages, got %d", len(langs))
	}
	for _, code := range langs {
		if !IsSupportedLang(code) {
			t.Errorf("SupportedLangs returned unsupported code %q", code)
		}
		if LangName(code) == code {
			t.Errorf("expected a display name for %q", code)
		}
	}
}
