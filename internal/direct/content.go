package direct

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Content stream text decoding. Only the text showing operators (Tj, TJ,
// ' and ") contribute characters; positioning operators insert spaces or
// line breaks. Strings in composite (CID) fonts decode to glyph ids, not
// characters, so hex strings that are not plain ASCII are dropped.

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokArray
	tokOperator
	tokOther
	tokClose
)

type token struct {
	kind  tokenKind
	str   []byte
	num   float64
	op    string
	items []token
}

// kerning below this (in thousandths of a text space unit) reads as a word gap
const tjSpaceThreshold = -200

// arrays and dictionaries nested deeper than this are skipped unread
const maxNesting = 64

func textFromContent(data []byte) string {
	s := &scanner{data: data}
	var sb strings.Builder
	var operands []token

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			if tok.kind != tokClose {
				operands = append(operands, tok)
			}
			continue
		}

		switch tok.op {
		case "Tj":
			writeLastString(&sb, operands)
		case "'", "\"":
			sb.WriteByte('\n')
			writeLastString(&sb, operands)
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				for _, item := range operands[n-1].items {
					switch item.kind {
					case tokString:
						sb.WriteString(decodeString(item.str))
					case tokNumber:
						if item.num < tjSpaceThreshold {
							sb.WriteByte(' ')
						}
					}
				}
			}
		case "Td", "TD":
			if n := len(operands); n >= 2 && operands[n-1].kind == tokNumber && operands[n-1].num != 0 {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		case "T*", "ET":
			sb.WriteByte('\n')
		case "Tm":
			sb.WriteByte(' ')
		case "BI":
			s.skipInlineImage()
		}
		operands = operands[:0]
	}

	return normalizeLines(sb.String())
}

func writeLastString(sb *strings.Builder, operands []token) {
	if n := len(operands); n > 0 && operands[n-1].kind == tokString {
		sb.WriteString(decodeString(operands[n-1].str))
	}
}

// decodeString maps PDF string bytes to text. UTF-16BE strings carry a
// byte order mark; everything else is treated as a single byte encoding.
func decodeString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}

	var sb strings.Builder
	for _, c := range b {
		r := rune(c)
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			sb.WriteByte(' ')
		case r < 0x20 || (r >= 0x7F && r < 0xA0):
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// normalizeLines collapses runs of spaces, trims every line and drops
// empty ones.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.FieldsFunc(line, unicode.IsSpace), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

type scanner struct {
	data  []byte
	pos   int
	depth int
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isPDFSpace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *scanner) next() (token, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return token{}, false
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		s.pos++
		return token{kind: tokString, str: s.literal()}, true
	case c == '<' && s.peek(1) == '<':
		s.pos += 2
		s.nested(tokOther)
		return token{kind: tokOther}, true
	case c == '<':
		s.pos++
		return s.hex(), true
	case c == '>' && s.peek(1) == '>':
		s.pos += 2
		return token{kind: tokClose}, true
	case c == '[':
		s.pos++
		if s.depth >= maxNesting {
			s.skipNested()
			return token{kind: tokOther}, true
		}
		return token{kind: tokArray, items: s.nested(tokArray)}, true
	case c == ']':
		s.pos++
		return token{kind: tokClose}, true
	case c == '/':
		s.pos++
		s.regular()
		return token{kind: tokOther}, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		word := s.regular()
		if f, err := strconv.ParseFloat(string(word), 64); err == nil {
			return token{kind: tokNumber, num: f}, true
		}
		return token{kind: tokOperator, op: string(word)}, true
	case isPDFDelim(c):
		s.pos++
		return token{kind: tokOther}, true
	default:
		return token{kind: tokOperator, op: string(s.regular())}, true
	}
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset < len(s.data) {
		return s.data[s.pos+offset]
	}
	return 0
}

func (s *scanner) regular() []byte {
	start := s.pos
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelim(s.data[s.pos]) {
		s.pos++
	}
	return s.data[start:s.pos]
}

func (s *scanner) nested(kind tokenKind) []token {
	if s.depth >= maxNesting {
		s.skipNested()
		return nil
	}
	s.depth++
	defer func() { s.depth-- }()
	return s.collect(kind)
}

// skipNested advances past the close matching an already consumed open
// without building tokens.
func (s *scanner) skipNested() {
	level := 1
	for level > 0 && s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == '(':
			s.pos++
			s.literal()
		case c == '%':
			s.skipSpace()
		case c == '<' && s.peek(1) == '<':
			s.pos += 2
			level++
		case c == '<':
			s.pos++
			s.hex()
		case c == '>' && s.peek(1) == '>':
			s.pos += 2
			level--
		case c == '[':
			s.pos++
			level++
		case c == ']':
			s.pos++
			level--
		default:
			s.pos++
		}
	}
}

// collect gathers tokens until the matching close token. Arrays keep their
// items; dictionaries are discarded.
func (s *scanner) collect(kind tokenKind) []token {
	var items []token
	for {
		tok, ok := s.next()
		if !ok || tok.kind == tokClose {
			return items
		}
		if kind == tokArray {
			items = append(items, tok)
		}
	}
}

func (s *scanner) literal() []byte {
	var buf bytes.Buffer
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return buf.Bytes()
			}
			buf.WriteByte(c)
		case '\\':
			s.escape(&buf)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

func (s *scanner) escape(buf *bytes.Buffer) {
	if s.pos >= len(s.data) {
		return
	}
	c := s.data[s.pos]
	s.pos++
	switch c {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		// line continuation
		if s.peek(0) == '\n' {
			s.pos++
		}
	case '\n':
	default:
		if c >= '0' && c <= '7' {
			val := int(c - '0')
			for i := 0; i < 2 && s.pos < len(s.data); i++ {
				d := s.data[s.pos]
				if d < '0' || d > '7' {
					break
				}
				val = val*8 + int(d-'0')
				s.pos++
			}
			buf.WriteByte(byte(val))
			return
		}
		buf.WriteByte(c)
	}
}

func (s *scanner) hex() token {
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		c := s.data[s.pos]
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++ // '>'
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return token{kind: tokOther}
		}
		out = append(out, byte(v))
	}

	if len(out) >= 2 && out[0] == 0xFE && out[1] == 0xFF {
		return token{kind: tokString, str: out}
	}
	for _, b := range out {
		if b < 0x20 || b > 0x7E {
			return token{kind: tokString}
		}
	}
	return token{kind: tokString, str: out}
}

// skipInlineImage advances past inline image data to the EI operator.
func (s *scanner) skipInlineImage() {
	idx := bytes.Index(s.data[s.pos:], []byte("ID"))
	if idx < 0 {
		s.pos = len(s.data)
		return
	}
	s.pos += idx + 2
	for s.pos < len(s.data) {
		idx := bytes.Index(s.data[s.pos:], []byte("EI"))
		if idx < 0 {
			s.pos = len(s.data)
			return
		}
		at := s.pos + idx
		s.pos = at + 2
		if at > 0 && isPDFSpace(s.data[at-1]) && (s.pos >= len(s.data) || isPDFSpace(s.data[s.pos])) {
			return
		}
	}
}
