// internal/extract/convert.go
package extract

import (
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// applyRegex applies an optional post-filter pattern to a string value,
// taking capture group 1 when the pattern defines one, otherwise the
// whole match. No match degrades the value to empty so the field default
// applies.
func applyRegex(pattern, value string) string {
	if pattern == "" {
		return value
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return value
	}
	m := re.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

// truncate cuts a string to max runes and appends a single ellipsis
// marker when anything was removed.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// resolveURL makes a raw href absolute against the page base URL.
// Protocol-relative references get https, root-relative references take
// the base's scheme and host, and everything else is joined. Fragments
// are preserved.
func resolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if base == nil {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return base.Scheme + "://" + base.Host + raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

var numericRunes = regexp.MustCompile(`[^0-9.,\-]`)

// parseNumber normalizes a human-formatted number string and returns an
// int64 when no decimal point survives normalization, else a float64.
// Commas are treated as thousands separators; with several dots, all but
// the last are treated as group separators.
func parseNumber(s string) (interface{}, bool) {
	s = width.Fold.String(norm.NFC.String(s))
	cleaned := numericRunes.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	if dots := strings.Count(cleaned, "."); dots > 1 {
		last := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:last], ".", "") + cleaned[last:]
	}

	// keep a single leading minus, drop any stray ones
	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if negative {
		cleaned = "-" + cleaned
	}

	if cleaned == "" || cleaned == "-" {
		return nil, false
	}

	if !strings.Contains(cleaned, ".") {
		n, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// commonDateFormats are tried in order after the configured format.
var commonDateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
	"2006年01月02日",
	"2006年1月2日",
}

var (
	relativeEnRe  = regexp.MustCompile(`(?i)(\d+)\s*(second|minute|hour|day|week|month|year)s?\s+ago`)
	relativeCjkRe = regexp.MustCompile(`(\d+)\s*(秒|分鐘|分钟|小時|小时|天|日|週|周|個月|个月|月|年)前`)
)

// parseDate resolves an absolute or localized relative date phrase. The
// configured format is tried first, then a fixed list of common formats,
// then relative-time phrases resolved against now.
func parseDate(s, format string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(width.Fold.String(norm.NFC.String(s)))
	if s == "" {
		return time.Time{}, false
	}

	if format != "" {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	for _, f := range commonDateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "just now"), strings.Contains(s, "剛剛"), strings.Contains(s, "刚刚"):
		return now, true
	case strings.Contains(lower, "yesterday"), strings.Contains(s, "昨天"):
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeEnRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return shiftBack(now, strings.ToLower(m[2]), n), true
	}
	if m := relativeCjkRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return shiftBack(now, cjkUnit(m[2]), n), true
	}

	return time.Time{}, false
}

func shiftBack(now time.Time, unit string, n int) time.Time {
	switch unit {
	case "second":
		return now.Add(-time.Duration(n) * time.Second)
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute)
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return now.AddDate(0, 0, -n)
	case "week":
		return now.AddDate(0, 0, -7*n)
	case "month":
		return now.AddDate(0, -n, 0)
	case "year":
		return now.AddDate(-n, 0, 0)
	}
	return now
}

func cjkUnit(u string) string {
	switch u {
	case "秒":
		return "second"
	case "分鐘", "分钟":
		return "minute"
	case "小時", "小时":
		return "hour"
	case "天", "日":
		return "day"
	case "週", "周":
		return "week"
	case "個月", "个月", "月":
		return "month"
	case "年":
		return "year"
	}
	return ""
}

var embeddedAssignRe = regexp.MustCompile(`(?s)var\s+\w+\s*=\s*([\{\[])`)

// extractEmbeddedJSON scans markup for a `var x = {...};` assignment and
// returns the balanced object or array literal that follows it. The scan
// is bounded by the markup length and aware of string literals.
func extractEmbeddedJSON(markup string) (string, bool) {
	loc := embeddedAssignRe.FindStringSubmatchIndex(markup)
	if loc == nil {
		return "", false
	}
	start := loc[2] // position of the opening brace/bracket
	return balancedLiteral(markup, start)
}

// balancedLiteral returns the substring starting at start spanning one
// balanced {} or [] literal, skipping braces inside string literals.
func balancedLiteral(s string, start int) (string, bool) {
	open := s[start]
	var closing byte
	switch open {
	case '{':
		closing = '}'
	case '[':
		closing = ']'
	default:
		return "", false
	}

	depth := 0
	inString := false
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == quote {
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// stripJSONComments removes single-line and block comments while leaving
// string literal contents untouched.
func stripJSONComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == quote {
				inString = false
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			inString = true
			quote = c
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i++ // past the closing slash
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// parseJSONValue parses a JSON document and optionally descends a
// dot-separated key path. A missing key yields nil, not an error.
func parseJSONValue(raw, path string) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(stripJSONComments(raw)), &value); err != nil {
		return nil, err
	}
	if path == "" {
		return value, nil
	}
	for _, key := range strings.Split(path, ".") {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, nil
		}
		value, ok = m[key]
		if !ok {
			return nil, nil
		}
	}
	return value, nil
}
