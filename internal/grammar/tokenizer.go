package grammar

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenInteger
	TokenReal
	TokenDate
	TokenOperator
	TokenLogical
	TokenLParen
	TokenRParen
)

var tokenTypeNames = [...]string{
	TokenEOF:        "eof",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenInteger:    "integer",
	TokenReal:       "real",
	TokenDate:       "date",
	TokenOperator:   "operator",
	TokenLogical:    "logical",
	TokenLParen:     "lparen",
	TokenRParen:     "rparen",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single token in a query string
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// operators are matched longest first.
var operators = []string{"!=", "!:", ">=", "<=", "=>", "=<", "=", "<", ">", ":"}

var keywordFolder = cases.Fold()

// Tokenizer tokenizes query strings. Input is decoded as UTF-8; Pos values
// are byte offsets.
type Tokenizer struct {
	input string
	pos   int
	width int
	ch    rune
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(input string) *Tokenizer {
	t := &Tokenizer{input: input}
	t.decode()
	return t
}

// decode loads the rune starting at pos.
func (t *Tokenizer) decode() {
	if t.pos >= len(t.input) {
		t.ch, t.width = 0, 0 // EOF
		return
	}
	t.ch, t.width = utf8.DecodeRuneInString(t.input[t.pos:])
}

// advance moves to the next character
func (t *Tokenizer) advance() {
	if t.width == 0 {
		return
	}
	t.pos += t.width
	t.decode()
}

// peek looks ahead one rune without advancing
func (t *Tokenizer) peek() rune {
	next := t.pos + t.width
	if t.width == 0 || next >= len(t.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.input[next:])
	return r
}

func (t *Tokenizer) skipWhitespace() {
	for t.ch == ' ' || t.ch == '\t' || t.ch == '\n' || t.ch == '\r' {
		t.advance()
	}
}

// readString reads a quoted string. The closing quote is required.
func (t *Tokenizer) readString() (string, bool) {
	quote := t.ch
	t.advance()

	var result strings.Builder
	for t.ch != 0 && t.ch != quote {
		if t.ch == '\\' && t.peek() == quote {
			t.advance()
		}
		result.WriteRune(t.ch)
		t.advance()
	}

	if t.ch != quote {
		return "", false
	}
	t.advance()
	return result.String(), true
}

func (t *Tokenizer) readDigits(result *strings.Builder) int {
	n := 0
	for t.ch != 0 && unicode.IsDigit(t.ch) {
		result.WriteRune(t.ch)
		t.advance()
		n++
	}
	return n
}

// readNumber reads an integer, real or date literal.
func (t *Tokenizer) readNumber() (TokenType, string, error) {
	var result strings.Builder
	signed := false

	if t.ch == '-' || t.ch == '+' {
		result.WriteRune(t.ch)
		t.advance()
		signed = true
	}

	intDigits := t.readDigits(&result)

	if !signed && intDigits > 0 && t.ch == '-' && unicode.IsDigit(t.peek()) {
		return t.readDate(&result)
	}

	typ := TokenInteger
	if t.ch == '.' {
		result.WriteRune(t.ch)
		t.advance()
		if t.readDigits(&result) == 0 && intDigits == 0 {
			return 0, "", fmt.Errorf("%w: expected digits at position %d", errUnexpectedCharacter, t.pos)
		}
		typ = TokenReal
	} else if intDigits == 0 {
		return 0, "", fmt.Errorf("%w: expected digits at position %d", errUnexpectedCharacter, t.pos)
	}

	if t.ch == 'e' || t.ch == 'E' {
		result.WriteRune(t.ch)
		t.advance()
		if t.ch == '+' || t.ch == '-' {
			result.WriteRune(t.ch)
			t.advance()
		}
		if t.readDigits(&result) == 0 {
			return 0, "", fmt.Errorf("%w: malformed exponent at position %d", errUnexpectedCharacter, t.pos)
		}
		typ = TokenReal
	}

	return typ, result.String(), nil
}

// readDate continues a number that turned out to be a YYYY-MM-DD literal.
func (t *Tokenizer) readDate(result *strings.Builder) (TokenType, string, error) {
	for part := 0; part < 2; part++ {
		if t.ch != '-' || !unicode.IsDigit(t.peek()) {
			return 0, "", fmt.Errorf("%w: malformed date at position %d", errUnexpectedCharacter, t.pos)
		}
		result.WriteRune(t.ch)
		t.advance()
		t.readDigits(result)
	}
	return TokenDate, result.String(), nil
}

func isIdentifierStart(ch rune) bool {
	return ch != 0 && unicode.IsLetter(ch)
}

func isIdentifierPart(ch rune) bool {
	return ch != 0 && (unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '$' || ch == '-')
}

// readIdentifier reads a dot separated identifier such as owner.name
func (t *Tokenizer) readIdentifier() (string, error) {
	var result strings.Builder

	for {
		for isIdentifierPart(t.ch) {
			result.WriteRune(t.ch)
			t.advance()
		}
		if t.ch != '.' {
			break
		}
		if !isIdentifierStart(t.peek()) {
			return "", fmt.Errorf("%w: dangling '.' at position %d", errUnexpectedCharacter, t.pos)
		}
		result.WriteRune(t.ch)
		t.advance()
	}

	return result.String(), nil
}

// NextToken returns the next token
func (t *Tokenizer) NextToken() (*Token, error) {
	t.skipWhitespace()

	if t.ch == 0 {
		return &Token{Type: TokenEOF, Pos: t.pos}, nil
	}

	pos := t.pos

	switch {
	case t.ch == '\'' || t.ch == '"':
		value, ok := t.readString()
		if !ok {
			return nil, fmt.Errorf("%w at position %d", errUnterminatedString, pos)
		}
		return &Token{Type: TokenString, Value: value, Pos: pos}, nil
	case unicode.IsDigit(t.ch), t.ch == '.' && unicode.IsDigit(t.peek()),
		(t.ch == '-' || t.ch == '+') && (unicode.IsDigit(t.peek()) || t.peek() == '.'):
		typ, value, err := t.readNumber()
		if err != nil {
			return nil, err
		}
		return &Token{Type: typ, Value: value, Pos: pos}, nil
	case t.ch == '(':
		t.advance()
		return &Token{Type: TokenLParen, Value: "(", Pos: pos}, nil
	case t.ch == ')':
		t.advance()
		return &Token{Type: TokenRParen, Value: ")", Pos: pos}, nil
	case isIdentifierStart(t.ch):
		value, err := t.readIdentifier()
		if err != nil {
			return nil, err
		}
		return t.classifyKeyword(value, pos), nil
	}

	if token := t.tokenizeOperator(pos); token != nil {
		return token, nil
	}

	return nil, fmt.Errorf("%w '%c' at position %d", errUnexpectedCharacter, t.ch, t.pos)
}

func (t *Tokenizer) tokenizeOperator(pos int) *Token {
	rest := t.input[t.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for range op {
				t.advance()
			}
			return &Token{Type: TokenOperator, Value: op, Pos: pos}
		}
	}
	return nil
}

// classifyKeyword turns the boolean connectives into logical tokens.
func (t *Tokenizer) classifyKeyword(value string, pos int) *Token {
	switch keywordFolder.String(value) {
	case "and":
		return &Token{Type: TokenLogical, Value: "and", Pos: pos}
	case "or":
		return &Token{Type: TokenLogical, Value: "or", Pos: pos}
	}
	return &Token{Type: TokenIdentifier, Value: value, Pos: pos}
}

// TokenizeAll returns all tokens from the input, terminated by an EOF token
func (t *Tokenizer) TokenizeAll() ([]*Token, error) {
	var tokens []*Token

	for {
		token, err := t.NextToken()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, token)

		if token.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}
