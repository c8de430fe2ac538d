// Package style derives per-template scoping tokens and parses literal
// style attribute values into ordered declarations for the code generator.
package style

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TokenPrefix namespaces every scoping token so scoped attributes are
// recognizable in rendered markup.
const TokenPrefix = "loom-"

// Token derives the scoping token for a template identity. The same
// identity always yields the same token; distinct identities never share
// one within a build.
func Token(identity string) string {
	h := sha256.New()
	h.Write([]byte(identity))
	return TokenPrefix + hex.EncodeToString(h.Sum(nil))[:12]
}

// HostToken returns the variant of token applied to the component's host
// element rather than to elements inside its template.
func HostToken(token string) string {
	return token + "-host"
}

// Declaration is a single property from a style attribute.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// ParseDeclarations splits a literal style attribute value into ordered
// declarations. Order is preserved exactly as authored. Semicolons and
// colons inside quotes or url(...) parentheses do not split declarations.
// Fragments without a property or value are dropped, matching how engines
// recover from malformed inline styles.
func ParseDeclarations(value string) []Declaration {
	var decls []Declaration
	var (
		parenDepth int
		quote      byte
		prop       string
		haveProp   bool
		propStart  int
		valueStart int
	)
	flush := func(end int) {
		if haveProp {
			decls = appendDeclaration(decls, prop, strings.TrimSpace(value[valueStart:end]))
			haveProp = false
		}
	}
	for i := 0; i < len(value); i++ {
		switch c := value[i]; c {
		case '(':
			if quote == 0 {
				parenDepth++
			}
		case ')':
			if quote == 0 {
				parenDepth--
			}
		case '\'', '"':
			if quote == 0 {
				quote = c
			} else if quote == c && value[i-1] != '\\' {
				quote = 0
			}
		case ':':
			if !haveProp && parenDepth == 0 && quote == 0 {
				prop = canonicalProperty(value[propStart:i])
				haveProp = prop != ""
				valueStart = i + 1
			}
		case ';':
			if parenDepth == 0 && quote == 0 {
				flush(i)
				propStart = i + 1
			}
		}
	}
	flush(len(value))
	return decls
}

func appendDeclaration(decls []Declaration, prop, raw string) []Declaration {
	if raw == "" {
		return decls
	}
	important := false
	if bang := lastBang(raw); bang >= 0 && strings.EqualFold(strings.TrimSpace(raw[bang+1:]), "important") {
		important = true
		raw = strings.TrimSpace(raw[:bang])
	}
	if raw == "" {
		return decls
	}
	return append(decls, Declaration{Property: prop, Value: raw, Important: important})
}

// lastBang finds the final '!' outside quotes and parentheses, the only
// position where an !important priority can start.
func lastBang(s string) int {
	var (
		parenDepth int
		quote      byte
	)
	last := -1
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(':
			if quote == 0 {
				parenDepth++
			}
		case ')':
			if quote == 0 {
				parenDepth--
			}
		case '\'', '"':
			if quote == 0 {
				quote = c
			} else if quote == c && s[i-1] != '\\' {
				quote = 0
			}
		case '!':
			if parenDepth == 0 && quote == 0 {
				last = i
			}
		}
	}
	return last
}

// canonicalProperty lowercases standard property names. Custom properties
// (--like-this) are case sensitive and pass through untouched.
func canonicalProperty(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "--") {
		return s
	}
	return strings.ToLower(s)
}
