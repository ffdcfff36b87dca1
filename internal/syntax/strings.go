package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// decodeString decodes a Python string literal including its prefix and
// quotes. f-strings and t-strings are not constants and report ok=false.
func decodeString(raw string) (value string, isBytes bool, ok bool) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRbBuUfFtT", raw[i]) >= 0 {
		i++
	}
	prefix := strings.ToLower(raw[:i])
	body := raw[i:]
	if strings.ContainsAny(prefix, "ft") {
		return "", false, false
	}

	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", false, false
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false, false
	}

	content := body[len(quote) : len(body)-len(quote)]
	isBytes = strings.Contains(prefix, "b")
	if strings.Contains(prefix, "r") {
		return content, isBytes, true
	}
	return unescape(content, isBytes), isBytes, true
}

// unescape applies Python backslash escapes. Unknown escapes are kept
// verbatim, as Python does.
func unescape(s string, isBytes bool) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			sb.WriteByte(ch)
			continue
		}

		i++
		switch esc := s[i]; esc {
		case '\n':
			// line continuation
		case '\\', '\'', '"':
			sb.WriteByte(esc)
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCode(&sb, rune(v), isBytes)
			i = j - 1
		case 'x':
			if v, n := hexDigits(s[i+1:], 2); n == 2 {
				writeCode(&sb, rune(v), isBytes)
				i += n
			} else {
				sb.WriteString(`\x`)
			}
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			if v, n := hexDigits(s[i+1:], width); n == width && !isBytes {
				sb.WriteRune(rune(v))
				i += n
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte('\\')
			sb.WriteByte(esc)
		}
	}
	return sb.String()
}

// writeCode writes a numeric escape: a raw byte for bytes literals, a code
// point otherwise.
func writeCode(sb *strings.Builder, r rune, isBytes bool) {
	if isBytes || r < utf8.RuneSelf {
		sb.WriteByte(byte(r))
		return
	}
	sb.WriteRune(r)
}

func hexDigits(s string, width int) (uint64, int) {
	if len(s) < width {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:width], 16, 32)
	if err != nil {
		return 0, 0
	}
	return v, width
}
