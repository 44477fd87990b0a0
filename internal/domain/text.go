package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxMessageRunes is the hard cap on inbound text; Telegram itself
	// caps messages at 4096 characters.
	MaxMessageRunes = 4096
	// SplitThreshold is where outbound replies are split, leaving room
	// for the language prefix Telegram replies carry.
	SplitThreshold = 3500
)

// NormalizeText applies NFKC, strips control and zero-width characters,
// trims whitespace and truncates to MaxMessageRunes.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
			continue
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			continue
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	runes := []rune(out)
	if len(runes) > MaxMessageRunes {
		out = string(runes[:MaxMessageRunes])
	}
	return out
}

// SplitMessage breaks text into chunks of at most max runes, preferring
// newline boundaries, then spaces, then a hard cut.
func SplitMessage(text string, max int) []string {
	if max <= 0 {
		max = SplitThreshold
	}
	runes := []rune(text)
	if len(runes) <= max {
		return []string{text}
	}
	var out []string
	for len(runes) > max {
		cut := max
		window := runes[:max]
		if i := lastIndexRune(window, '\n'); i > 0 {
			cut = i
		} else if i := lastIndexRune(window, ' '); i > 0 {
			cut = i
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \n"))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
