package cypher

import (
	"strings"
	"unicode"
)

// TokenKind classifies a lexical Cypher token.
type TokenKind int

const (
	TokenIdent       TokenKind = iota // bare identifier or keyword
	TokenQuotedIdent                  // `x`
	TokenString                       // 'x' or "x"
	TokenNumber
	TokenParam // $name
	TokenPunct
)

// Token is one lexical unit of a Cypher statement.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
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

// Upper returns the upper-cased text.
func (t Token) Upper() string {
	return strings.ToUpper(t.Text)
}

var multiCharPunct = []string{"<-", "->", "..", "<=", ">=", "<>", "=~", "+="}

// Tokenize splits a Cypher statement into tokens, dropping whitespace and
// both comment styles.
func Tokenize(query string) []Token {
	var tokens []Token
	rs := []rune(query)
	n := len(rs)

	for i := 0; i < n; {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++

		case c == '/' && i+1 < n && rs[i+1] == '/':
			for i < n && rs[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && rs[i+1] == '*':
			i += 2
			for i < n && !(rs[i] == '*' && i+1 < n && rs[i+1] == '/') {
				i++
			}
			i += 2

		case c == '\'' || c == '"':
			start := i
			i++
			var sb strings.Builder
			for i < n && rs[i] != c {
				if rs[i] == '\\' && i+1 < n {
					i++
				}
				sb.WriteRune(rs[i])
				i++
			}
			i++
			tokens = append(tokens, Token{Kind: TokenString, Text: sb.String(), Pos: start})

		case c == '`':
			start := i
			j := i + 1
			for j < n && rs[j] != '`' {
				j++
			}
			tokens = append(tokens, Token{Kind: TokenQuotedIdent, Text: string(rs[i+1 : min(j, n)]), Pos: start})
			i = j + 1

		case c == '$':
			start := i
			i++
			for i < n && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenParam, Text: string(rs[start:i]), Pos: start})

		case unicode.IsDigit(c):
			start := i
			for i < n && (unicode.IsDigit(rs[i]) || rs[i] == 'e' || rs[i] == 'E' ||
				(rs[i] == '.' && i+1 < n && unicode.IsDigit(rs[i+1]))) {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Text: string(rs[start:i]), Pos: start})

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < n && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{Kind: TokenIdent, Text: string(rs[start:i]), Pos: start})

		default:
			start := i
			i++
			if i < n {
				pair := string(rs[start : i+1])
				for _, p := range multiCharPunct {
					if pair == p {
						i++
						break
					}
				}
			}
			tokens = append(tokens, Token{Kind: TokenPunct, Text: string(rs[start:i]), Pos: start})
		}
	}

	return tokens
}
