package parse

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/loomkit/loom/pkg/diag"
)

// Source is one immutable template input: UTF-8 markup plus the filename
// reported in diagnostics. It is never mutated after ingestion.
type Source struct {
	Name    string
	Content string
}

// scanner is the low-level cursor over a template source. The parser drives
// it directly; every consuming method keeps line/col/offset in sync so node
// and diagnostic positions stay exact.
type scanner struct {
	src  Source
	pos  int
	line int
	col  int
}

func newScanner(src Source) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

// loc captures the current position.
func (s *scanner) loc() diag.Loc {
	return diag.Loc{File: s.src.Name, Line: s.line, Col: s.col, Offset: s.pos}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src.Content) }

// cur returns the byte under the cursor, or 0 at EOF.
func (s *scanner) cur() byte {
	if s.eof() {
		return 0
	}
	return s.src.Content[s.pos]
}

// peek reports whether the input at the cursor starts with lit.
func (s *scanner) peek(lit string) bool {
	return strings.HasPrefix(s.src.Content[s.pos:], lit)
}

// advance moves the cursor one byte forward, tracking newlines.
func (s *scanner) advance() {
	if s.eof() {
		return
	}
	if s.src.Content[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

// advanceBy moves the cursor n bytes forward.
func (s *scanner) advanceBy(n int) {
	for i := 0; i < n && !s.eof(); i++ {
		s.advance()
	}
}

// consume advances past lit when it is next in the input.
func (s *scanner) consume(lit string) bool {
	if !s.peek(lit) {
		return false
	}
	s.advanceBy(len(lit))
	return true
}

// skipSpace consumes ASCII whitespace.
func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.cur() {
		case ' ', '\t', '\n', '\r', '\f':
			s.advance()
		default:
			return
		}
	}
}

// scanTagName consumes a tag name, returning "" when the cursor is not at
// a valid tag start character.
func (s *scanner) scanTagName() string {
	if s.eof() || !isTagStartChar(s.cur()) {
		return ""
	}
	start := s.pos
	for !s.eof() && isTagChar(s.cur()) {
		s.advance()
	}
	return s.src.Content[start:s.pos]
}

// scanAttrName consumes an attribute name (directive names included).
func (s *scanner) scanAttrName() string {
	start := s.pos
	for !s.eof() && isAttrNameChar(s.cur()) {
		s.advance()
	}
	return s.src.Content[start:s.pos]
}

// peekCloseName looks ahead past "</" for a tag name without moving the
// cursor. Used for close-tag recovery decisions.
func (s *scanner) peekCloseName() (string, bool) {
	rest := s.src.Content[s.pos:]
	if !strings.HasPrefix(rest, "</") {
		return "", false
	}
	i := 2
	for i < len(rest) && isTagChar(rest[i]) {
		i++
	}
	if i == 2 {
		return "", false
	}
	return rest[2:i], true
}

// scanUntil consumes input up to (not including) the first occurrence of any
// of the stop literals, or EOF. It returns the consumed text.
func (s *scanner) scanUntil(stops ...string) string {
	start := s.pos
	for !s.eof() {
		for _, stop := range stops {
			if s.peek(stop) {
				return s.src.Content[start:s.pos]
			}
		}
		s.advance()
	}
	return s.src.Content[start:s.pos]
}

// decodeEntities resolves HTML character references in text and quoted
// attribute values. Literal braces are authored as &#123; / &#125;.
func decodeEntities(text string) string {
	if !strings.ContainsRune(text, '&') {
		return text
	}
	return html.UnescapeString(text)
}
