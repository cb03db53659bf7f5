package sql

import (
	"strings"
	"unicode"
)

// TokenKind classifies a lexical SQL token.
type TokenKind int

const (
	TokenIdent       TokenKind = iota // bare identifier or keyword
	TokenQuotedIdent                  // "x", `x` or [x]
	TokenString                       // 'x'
	TokenNumber
	TokenPunct
)

// Token is one lexical unit of a SQL statement. Comments and whitespace are
// dropped.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Upper returns the upper-cased text, for keyword comparisons.
func (t Token) Upper() string {
	return strings.ToUpper(t.Text)
}

// IsIdent reports whether the token names something (quoted or bare).
func (t Token) IsIdent() bool {
	return t.Kind == TokenIdent || t.Kind == TokenQuotedIdent
}

// Is reports whether the token is the given bare keyword or punctuation.
func (t Token) Is(s string) bool {
	if t.Kind == TokenPunct {
		return t.Text == s
	}
	return t.Kind == TokenIdent && strings.EqualFold(t.Text, s)
}

// Tokenize splits a SQL statement into tokens. It understands single-quoted
// strings with doubled-quote escapes, double-quoted, backtick and bracket
// identifiers, and both comment styles. Unterminated literals run to the end
// of input.
func Tokenize(query string) []Token {
	var tokens []Token
	rs := []rune(query)
	n := len(rs)

	for i := 0; i < n; {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++

		case c == '-' && i+1 < n && rs[i+1] == '-':
			for i < n && rs[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && rs[i+1] == '*':
			i += 2
			for i < n && !(rs[i] == '*' && i+1 < n && rs[i+1] == '/') {
				i++
			}
			i += 2

		case c == '\'':
			start := i
			i++
			var sb strings.Builder
			for i < n {
				if rs[i] == '\'' {
					if i+1 < n && rs[i+1] == '\'' {
						sb.WriteRune('\'')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteRune(rs[i])
				i++
			}
			tokens = append(tokens, Token{Kind: TokenString, Text: sb.String(), Pos: start})

		case c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			start := i
			i++
			j := i
			for j < n && rs[j] != closer {
				j++
			}
			tokens = append(tokens, Token{Kind: TokenQuotedIdent, Text: string(rs[i:j]), Pos: start})
			i = j + 1

		case unicode.IsDigit(c) || (c == '.' && i+1 < n && unicode.IsDigit(rs[i+1])):
			start := i
			for i < n && (unicode.IsDigit(rs[i]) || rs[i] == '.' || rs[i] == 'e' || rs[i] == 'E') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Text: string(rs[start:i]), Pos: start})

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < n && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_' || rs[i] == '$') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: string(rs[start:i]), Pos: start})

		default:
			start := i
			i++
			// two-character operators
			if i < n {
				pair := string(rs[start : i+1])
				switch pair {
				case "<=", ">=", "<>", "!=", "||", "::":
					i++
				}
			}
			tokens = append(tokens, Token{Kind: TokenPunct, Text: string(rs[start:i]), Pos: start})
		}
	}

	return tokens
}
