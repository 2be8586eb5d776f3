package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokMinus
	tokAnd
	tokOr
	tokNot
	tokTerm
	tokFieldGroup // "field:" directly followed by "("
)

type token struct {
	kind   tokenKind
	pos    int
	field  string
	value  string
	quoted bool
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) errorf(pos int, msg string) error {
	return &ParseError{Input: l.input, Pos: pos, Msg: msg}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.input) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '"'
}

func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: start}, nil
	}

	switch l.input[l.pos] {
	case '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case '-':
		l.pos++
		return token{kind: tokMinus, pos: start}, nil
	case '+':
		// required marker, conjunction is the default
		l.pos++
		return l.next()
	case '"':
		v, err := l.quoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokTerm, pos: start, value: v, quoted: true}, nil
	}

	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if isDelimiter(r) {
			break
		}
		l.pos += size
	}
	word := l.input[start:l.pos]

	switch word {
	case "AND", "&&":
		return token{kind: tokAnd, pos: start}, nil
	case "OR", "||":
		return token{kind: tokOr, pos: start}, nil
	case "NOT":
		return token{kind: tokNot, pos: start}, nil
	}

	field, value, ok := strings.Cut(word, ":")
	if !ok {
		return token{kind: tokTerm, pos: start, value: word}, nil
	}
	if field == "" {
		return token{}, l.errorf(start, "missing field name before ':'")
	}
	if value != "" {
		return token{kind: tokTerm, pos: start, field: field, value: value}, nil
	}

	switch l.peekRune() {
	case '"':
		v, err := l.quoted()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokTerm, pos: start, field: field, value: v, quoted: true}, nil
	case '(':
		return token{kind: tokFieldGroup, pos: start, field: field}, nil
	default:
		return token{}, l.errorf(start, "missing value for field "+field)
	}
}

func (l *lexer) quoted() (string, error) {
	start := l.pos
	l.pos++ // opening quote
	end := strings.IndexByte(l.input[l.pos:], '"')
	if end < 0 {
		return "", l.errorf(start, "unterminated quote")
	}
	v := l.input[l.pos : l.pos+end]
	l.pos += end + 1
	return v, nil
}
