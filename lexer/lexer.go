package lexer

import (
	"iter"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

// Lex scans the whole source and returns every non-trivia token, terminated
// by EOF. Malformed input shows up as ERROR tokens and as diagnostics.
func Lex(source string) ([]token.Token, diag.List) {
	s := NewScanner(source)
	var tokens []token.Token
	var diags diag.List
	for tok := range s.Tokens() {
		if tok.Kind == token.ERROR {
			diags.Add(ErrorOf(tok))
		}
		if tok.IsTrivia() {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, diags
}

// Scanner produces tokens on demand. It never fails: unrecognized input becomes
// an ERROR token and scanning continues after it.
type Scanner struct {
	source string

	start   int // start of current lexeme
	current int // current position in source
	line    int // current line number
	column  int // current column, in runes

	startLine   int
	startColumn int
}

func NewScanner(source string) *Scanner {
	s := &Scanner{}
	s.Reset(source)
	return s
}

// Reset restarts scanning from the beginning of source.
func (s *Scanner) Reset(source string) {
	s.source = source
	s.start = 0
	s.current = 0
	s.line = 1
	s.column = 1
}

// State is a saved scan position.
type State struct {
	current, line, column int
}

func (s *Scanner) Save() State {
	return State{current: s.current, line: s.line, column: s.column}
}

func (s *Scanner) Restore(st State) {
	s.current, s.line, s.column = st.current, st.line, st.column
}

// Tokens yields tokens up to and including EOF.
func (s *Scanner) Tokens() iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for {
			tok := s.Next()
			if !yield(tok) || tok.Kind == token.EOF {
				return
			}
		}
	}
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) peek() rune {
	return s.peekAt(0)
}

// peekAt looks n runes ahead without consuming.
func (s *Scanner) peekAt(n int) rune {
	pos := s.current
	for ; n > 0; n-- {
		if pos >= len(s.source) {
			return 0
		}
		_, width := utf8.DecodeRuneInString(s.source[pos:])
		pos += width
	}
	if pos >= len(s.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[pos:])
	return r
}

func (s *Scanner) advance() rune {
	r, width := utf8.DecodeRuneInString(s.source[s.current:])
	s.current += width
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return r
}

func (s *Scanner) match(r rune) bool {
	if s.peek() != r {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) span() token.Span {
	return token.Span{Line: s.startLine, Column: s.startColumn, Offset: s.start, Length: s.current - s.start}
}

func (s *Scanner) make(kind token.Kind, literal any) token.Token {
	return token.Token{Kind: kind, Lexeme: s.source[s.start:s.current], Span: s.span(), Literal: literal}
}

func (s *Scanner) fail(category diag.Category, reason string) token.Token {
	return s.make(token.ERROR, Error{Category: category, Reason: reason})
}

func (s *Scanner) skipWhitespace() {
	for !s.isAtEnd() && unicode.IsSpace(s.peek()) {
		s.advance()
	}
}

// Next returns the next token, including COMMENT tokens.
func (s *Scanner) Next() token.Token {
	s.skipWhitespace()
	s.start = s.current
	s.startLine, s.startColumn = s.line, s.column
	if s.isAtEnd() {
		return s.make(token.EOF, nil)
	}

	c := s.peek()
	switch {
	case c == '/' && s.peekAt(1) == '/':
		return s.lineComment()
	case c == '/' && s.peekAt(1) == '*':
		return s.blockComment()
	case c == '"':
		s.advance()
		return s.str("")
	case c == '\'':
		return s.quote()
	case isDigit(c):
		return s.number()
	case isIdentStart(c):
		if tok, ok := s.prefixed(); ok {
			return tok
		}
		return s.identifier()
	}
	return s.operator()
}

func (s *Scanner) lineComment() token.Token {
	for !s.isAtEnd() && s.peek() != '\n' {
		s.advance()
	}
	return s.make(token.COMMENT, nil)
}

// blockComment consumes a possibly nested /* ... */ comment.
func (s *Scanner) blockComment() token.Token {
	s.advance()
	s.advance()
	depth := 1
	for depth > 0 {
		if s.isAtEnd() {
			return s.fail(diag.UnterminatedComment, "unterminated block comment")
		}
		switch {
		case s.peek() == '/' && s.peekAt(1) == '*':
			s.advance()
			s.advance()
			depth++
		case s.peek() == '*' && s.peekAt(1) == '/':
			s.advance()
			s.advance()
			depth--
		default:
			s.advance()
		}
	}
	return s.make(token.COMMENT, nil)
}

// prefixed handles literals and identifiers introduced by a letter prefix:
// r"..", r#".."#, r#ident, b'x', b"..", br"..", c"..", cr"..".
func (s *Scanner) prefixed() (token.Token, bool) {
	c, next := s.peek(), s.peekAt(1)
	switch {
	case c == 'r' && next == '#' && isIdentStart(s.peekAt(2)):
		return s.rawIdentifier(), true
	case c == 'r' && (next == '"' || next == '#'):
		s.advance()
		return s.rawStr("r"), true
	case c == 'b' && next == '\'':
		s.advance()
		return s.char(true), true
	case c == 'b' && next == '"':
		s.advance()
		s.advance()
		return s.str("b"), true
	case (c == 'b' || c == 'c') && next == 'r' && (s.peekAt(2) == '"' || s.peekAt(2) == '#'):
		s.advance()
		s.advance()
		return s.rawStr(string(c) + "r"), true
	case c == 'c' && next == '"':
		s.advance()
		s.advance()
		return s.str("c"), true
	}
	return token.Token{}, false
}

func (s *Scanner) rawIdentifier() token.Token {
	s.advance()
	s.advance()
	nameStart := s.current
	for isIdentContinue(s.peek()) {
		s.advance()
	}
	tok := s.make(token.IDENT, nil)
	tok.Lexeme = s.source[nameStart:s.current]
	tok.Raw = true
	return tok
}

func (s *Scanner) identifier() token.Token {
	for isIdentContinue(s.peek()) {
		s.advance()
	}
	text := s.source[s.start:s.current]
	if text == "_" {
		return s.make(token.UNDERSCORE, nil)
	}
	if k, ok := token.Keyword(text); ok {
		switch k {
		case token.TRUE:
			return s.make(k, true)
		case token.FALSE:
			return s.make(k, false)
		}
		return s.make(k, nil)
	}
	return s.make(token.IDENT, nil)
}

// operator applies maximal munch over the operator table.
func (s *Scanner) operator() token.Token {
	for n := token.MaxOperatorLen; n >= 1; n-- {
		if s.start+n > len(s.source) {
			continue
		}
		if k, ok := token.Operator(s.source[s.start : s.start+n]); ok {
			for range n {
				s.advance()
			}
			return s.make(k, nil)
		}
	}
	r := s.advance()
	return s.fail(diag.UnexpectedCharacter, "unexpected character "+strconv.QuoteRune(r))
}

// str scans a string body after the opening quote. Escapes are decoded
// eagerly; a bad escape is reported once the whole literal is consumed.
func (s *Scanner) str(prefix string) token.Token {
	var b strings.Builder
	var bad *Error
	for {
		if s.isAtEnd() {
			return s.fail(diag.UnterminatedString, "unterminated string literal")
		}
		r := s.advance()
		if r == '"' {
			break
		}
		if r != '\\' {
			b.WriteRune(r)
			continue
		}
		if s.isAtEnd() {
			return s.fail(diag.UnterminatedString, "unterminated string literal")
		}
		esc := s.advance()
		if v, ok := unescape(esc); ok {
			b.WriteRune(v)
		} else if bad == nil {
			bad = &Error{Category: diag.InvalidEscape, Reason: "unknown escape sequence \\" + string(esc)}
		}
	}
	if bad != nil {
		return s.make(token.ERROR, *bad)
	}
	return s.make(token.STRING, token.StrLit{Value: b.String(), Prefix: prefix})
}

// rawStr scans r#"..."# after the prefix letters; no escapes are decoded.
func (s *Scanner) rawStr(prefix string) token.Token {
	hashes := 0
	for s.match('#') {
		hashes++
	}
	if !s.match('"') {
		return s.fail(diag.UnterminatedString, "expected `\"` to open raw string")
	}
	bodyStart := s.current
	closing := "\"" + strings.Repeat("#", hashes)
	for {
		if s.isAtEnd() {
			return s.fail(diag.UnterminatedString, "unterminated raw string literal")
		}
		if strings.HasPrefix(s.source[s.current:], closing) {
			value := s.source[bodyStart:s.current]
			for range len(closing) {
				s.advance()
			}
			return s.make(token.STRING, token.StrLit{Value: value, Prefix: prefix})
		}
		s.advance()
	}
}

// quote decides between a lifetime ('a, 'static) and a character literal.
func (s *Scanner) quote() token.Token {
	if isIdentStart(s.peekAt(1)) && s.peekAt(2) != '\'' {
		s.advance()
		for isIdentContinue(s.peek()) {
			s.advance()
		}
		if s.peek() != '\'' {
			return s.make(token.LIFETIME, nil)
		}
		// 'ab' is a character literal holding too many characters.
		s.advance()
		return s.fail(diag.InvalidCharLiteral, "character literal may only contain one codepoint")
	}
	return s.char(false)
}

func (s *Scanner) char(isByte bool) token.Token {
	s.advance() // opening quote
	var values []rune
	var bad *Error
	for {
		if s.isAtEnd() || s.peek() == '\n' {
			return s.fail(diag.UnterminatedChar, "unterminated character literal")
		}
		r := s.advance()
		if r == '\'' && len(values) > 0 {
			break
		}
		if r == '\'' {
			return s.fail(diag.InvalidCharLiteral, "empty character literal")
		}
		if r != '\\' {
			values = append(values, r)
			continue
		}
		if s.isAtEnd() {
			return s.fail(diag.UnterminatedChar, "unterminated character literal")
		}
		esc := s.advance()
		v, ok := unescape(esc)
		if !ok && bad == nil {
			bad = &Error{Category: diag.InvalidEscape, Reason: "unknown escape sequence \\" + string(esc)}
		}
		values = append(values, v)
	}
	if bad != nil {
		return s.make(token.ERROR, *bad)
	}
	if len(values) != 1 {
		return s.fail(diag.InvalidCharLiteral, "character literal may only contain one codepoint")
	}
	if isByte && values[0] > 0x7f {
		return s.fail(diag.InvalidCharLiteral, "non-ASCII character in byte literal")
	}
	return s.make(token.CHAR, token.CharLit{Value: values[0], Byte: isByte})
}

func unescape(esc rune) (rune, bool) {
	switch esc {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	default:
		return esc, false
	}
}

// number scans an integer literal: optional radix prefix, digits with
// insignificant underscores, optional type suffix.
func (s *Scanner) number() token.Token {
	radix := token.Decimal
	if s.peek() == '0' {
		switch s.peekAt(1) {
		case 'x':
			radix = token.Hex
		case 'o':
			radix = token.Octal
		case 'b':
			radix = token.Binary
		}
		if radix != token.Decimal {
			s.advance()
			s.advance()
		}
	}

	digitsStart := s.current
	for isDigitOf(s.peek(), radix) || isDigit(s.peek()) || s.peek() == '_' {
		s.advance()
	}
	raw := s.source[digitsStart:s.current]
	suffixStart := s.current
	for isIdentContinue(s.peek()) {
		s.advance()
	}
	suffix := s.source[suffixStart:s.current]

	if radix != token.Decimal && strings.HasPrefix(raw, "_") {
		return s.fail(diag.InvalidDigit, "underscore may not follow the radix prefix")
	}
	digits := strings.ReplaceAll(raw, "_", "")
	if digits == "" {
		return s.fail(diag.InvalidDigit, "no digits after radix prefix "+radix.Prefix())
	}
	for _, d := range digits {
		if !isDigitOf(d, radix) {
			return s.fail(diag.InvalidDigit, "invalid digit "+strconv.QuoteRune(d)+" in base "+strconv.Itoa(int(radix))+" literal")
		}
	}
	if suffix != "" && !slices.Contains(token.IntSuffixes, suffix) {
		return s.fail(diag.InvalidSuffix, "invalid suffix `"+suffix+"` for integer literal")
	}

	lit := token.IntLit{Radix: radix, Suffix: suffix}
	value, err := strconv.ParseUint(digits, int(radix), 64)
	if err != nil {
		lit.Overflow = true
	}
	lit.Value = value
	return s.make(token.INTEGER, lit)
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isDigitOf(c rune, radix token.Radix) bool {
	switch radix {
	case token.Binary:
		return c == '0' || c == '1'
	case token.Octal:
		return c >= '0' && c <= '7'
	case token.Hex:
		return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	default:
		return isDigit(c)
	}
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentContinue(c rune) bool {
	return isIdentStart(c) || unicode.IsDigit(c)
}
