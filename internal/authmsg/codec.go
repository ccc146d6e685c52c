// Package authmsg converts between key/value records and the line-oriented
// text a wallet signs during login.
//
// A record encodes as one "Title Cased Key: value" line per field. Decoding
// splits every line on the first ": " and lower-camel-cases the key. Values
// are not escaped, so they must not contain newlines; a value holding ": "
// survives because only the first separator is honoured.
package authmsg

import (
	"strings"
	"time"
	"unicode"
)

const separator = ": "

// Canonical login message keys.
const (
	KeyNonce     = "nonce"
	KeyAddress   = "address"
	KeyExpiresAt = "expiresAt"
)

// TimeLayout is the timestamp format embedded in login messages.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Field is one key/value pair of an ordered record.
type Field struct {
	Key   string
	Value string
}

// Encode renders fields in the given order, one line each.
func Encode(fields ...Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, titleKey(f.Key)+separator+f.Value)
	}
	return strings.Join(lines, "\n")
}

// Decode parses text produced by Encode. Lines without a separator or with an
// empty key are skipped.
func Decode(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		key, value, ok := strings.Cut(line, separator)
		if !ok {
			continue
		}
		key = camelKey(key)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Build returns the canonical message a wallet signs to answer a challenge.
func Build(nonce, address string, expiresAt time.Time) string {
	return Encode(
		Field{Key: KeyNonce, Value: nonce},
		Field{Key: KeyAddress, Value: address},
		Field{Key: KeyExpiresAt, Value: FormatTime(expiresAt)},
	)
}

// FormatTime renders t the way login messages carry timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp, with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}

func titleKey(key string) string {
	words := splitWords(key)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func camelKey(key string) string {
	words := splitWords(key)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func capitalize(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// splitWords breaks a key on spaces, '_', '-' and camelCase boundaries:
// "expiresAt" -> [expires At], "userID" -> [user ID], "IDToken" -> [ID Token].
func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == ' ' || r == '_' || r == '-' || r == '\t':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
