package enrich

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Model replies that should contain a list of strings arrive as free-form
// text around a bracketed list literal. The literal is extracted and parsed
// with a strict grammar (quoted strings and commas only); it is never
// evaluated as code, so code-like model output degrades to a parse error.

var errNoList = errors.New("no bracketed list in text")

// extractStringList finds the first bracket-delimited span in text and
// parses it as a list of quoted strings.
func extractStringList(text string) ([]string, error) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return nil, errNoList
	}
	end := strings.IndexByte(text[start:], ']')
	if end < 0 {
		return nil, errNoList
	}
	return parseStringList(text[start : start+end+1])
}

// parseStringList parses a bracketed literal like ["a", 'b'] into its
// elements. Anything other than quoted strings, commas and whitespace
// between the brackets is an error.
func parseStringList(literal string) ([]string, error) {
	body := strings.TrimSpace(literal)
	if len(body) < 2 || body[0] != '[' || body[len(body)-1] != ']' {
		return nil, fmt.Errorf("not a bracketed list: %q", literal)
	}
	body = body[1 : len(body)-1]

	var (
		items       []string
		i           int
		expectComma bool
	)
	for i < len(body) {
		r, size := utf8.DecodeRuneInString(body[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == ',':
			if !expectComma {
				return nil, fmt.Errorf("unexpected comma at offset %d", i)
			}
			expectComma = false
			i += size
		case r == '\'' || r == '"':
			if expectComma {
				return nil, fmt.Errorf("missing comma before string at offset %d", i)
			}
			s, next, err := parseQuoted(body, i, byte(r))
			if err != nil {
				return nil, err
			}
			items = append(items, s)
			i = next
			expectComma = true
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return items, nil
}

// parseQuoted reads a quoted string starting at the opening quote and
// returns its unescaped value and the offset past the closing quote.
func parseQuoted(s string, start int, quote byte) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(s) {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("dangling escape at offset %d", i)
			}
			next := s[i+1]
			switch next {
			case '\\', '\'', '"':
				sb.WriteByte(next)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(next)
			}
			i += 2
		case quote:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at offset %d", start)
}
