package collector

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPhoneLen = 7
	maxNameLen  = 50
)

var (
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRunPattern   = regexp.MustCompile(`[0-9\-+()\s]{7,}`)
	phoneWholePattern = regexp.MustCompile(`^[0-9\-+()\s]{7,}$`)
)

const nameSeparators = ",;:|-"

// findEmail returns the first email-shaped token and its byte offset.
func findEmail(text string) (string, int) {
	loc := emailPattern.FindStringIndex(text)
	if loc == nil {
		return "", -1
	}
	return text[loc[0]:loc[1]], loc[0]
}

// findPhone returns the first phone-shaped run that carries at least one digit.
func findPhone(text string) string {
	for _, run := range phoneRunPattern.FindAllString(text, -1) {
		if candidate := strings.TrimSpace(run); validPhone(candidate) {
			return candidate
		}
	}
	return ""
}

func validPhone(s string) bool {
	s = strings.TrimSpace(s)
	return utf8.RuneCountInString(s) >= minPhoneLen && strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isPhoneSegment(s string) bool {
	s = strings.TrimSpace(s)
	return phoneWholePattern.MatchString(s) && validPhone(s)
}

func stripSeparators(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(nameSeparators, r)
	})
}

func plausibleName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n <= 1 || n >= maxNameLen {
		return false
	}
	return !strings.ContainsRune(s, '@') && strings.IndexFunc(s, unicode.IsDigit) < 0
}

// ContactOnly reports whether text carries nothing but contact tokens, the
// given known values and separators.
func ContactOnly(text string, known ...string) bool {
	rest := emailPattern.ReplaceAllString(text, " ")
	rest = phoneRunPattern.ReplaceAllStringFunc(rest, func(run string) string {
		if validPhone(run) {
			return " "
		}
		return run
	})
	for _, k := range known {
		if k = strings.TrimSpace(k); k != "" {
			rest = replaceFold(rest, k)
		}
	}
	return strings.TrimFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) == ""
}

func replaceFold(s, old string) string {
	lower := strings.ToLower(s)
	needle := strings.ToLower(old)
	if len(lower) != len(s) {
		return strings.ReplaceAll(s, old, " ")
	}
	var b strings.Builder
	for {
		i := strings.Index(lower, needle)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteByte(' ')
		s = s[i+len(needle):]
		lower = lower[i+len(needle):]
	}
}
