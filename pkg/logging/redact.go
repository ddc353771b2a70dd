package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Eight or more digits with the separators people type between them.
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)
)

// ScrubPII replaces emails with [EMAIL] and phone numbers with [PHONE] so
// free text from travellers or the model can be logged. Names are kept.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllStringFunc(text, func(m string) string {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 8 {
			return m
		}
		return "[PHONE]"
	})
}

// Preview scrubs text and cuts it to at most max runes.
func Preview(text string, max int) string {
	text = strings.TrimSpace(ScrubPII(text))
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max]) + "…"
}
