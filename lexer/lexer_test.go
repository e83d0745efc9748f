package lexer_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/lexer"
	"github.com/takoeight0821/rustsub/token"
)

func dump(tokens []token.Token) []byte {
	var builder strings.Builder
	for _, tok := range tokens {
		builder.WriteString(tok.String())
		builder.WriteString("\n")
	}
	return []byte(builder.String())
}

func TestGolden(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name   string
		source string
	}{
		{"function", `fn main() {
    let x = 0xFF;
    let y = 1_000u32 >> 2;
}
`},
		{"literals", `let s = "He said \"Hi\"\n";
let c = 'a';
let b = b'z';
let r = r#"raw "text""#;
/* outer /* inner */ still comment */
x <<= 0b1010; // done
`},
	}

	for _, testcase := range testcases {
		tokens, diags := lexer.Lex(testcase.source)
		if diags.HasErrors() {
			t.Errorf("%s returned errors:\n%v", testcase.name, diags)
			continue
		}

		g := goldie.New(t)
		g.Assert(t, testcase.name, dump(tokens))
	}
}

func lexOne(t *testing.T, source string) token.Token {
	t.Helper()
	tokens, _ := lexer.Lex(source)
	if len(tokens) != 2 {
		t.Fatalf("%q: expected one token before EOF, got %v", source, tokens)
	}
	return tokens[0]
}

func TestIntegerRadix(t *testing.T) {
	t.Parallel()

	for _, source := range []string{"255", "0xFF", "0xff", "0o377", "0b1111_1111", "2_5_5"} {
		tok := lexOne(t, source)
		lit, ok := tok.Literal.(token.IntLit)
		if tok.Kind != token.INTEGER || !ok {
			t.Errorf("%q: expected an integer literal, got %v", source, tok)
			continue
		}
		if lit.Value != 255 || lit.Overflow {
			t.Errorf("%q: expected 255, got %v", source, lit)
		}
	}
}

func TestIntegerSuffix(t *testing.T) {
	t.Parallel()

	tok := lexOne(t, "1_000_000i64")
	lit := tok.Literal.(token.IntLit)
	if lit.Value != 1_000_000 || lit.Suffix != "i64" {
		t.Errorf("expected 1000000i64, got %v", lit)
	}
	if tok.Lexeme != "1_000_000i64" {
		t.Errorf("lexeme must keep underscores, got %q", tok.Lexeme)
	}

	tok = lexOne(t, "99999999999999999999")
	if lit := tok.Literal.(token.IntLit); !lit.Overflow {
		t.Errorf("expected overflow, got %v", lit)
	}
}

func TestMalformedLiterals(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		source   string
		category diag.Category
	}{
		{"0b102", diag.InvalidDigit},
		{"0x", diag.InvalidDigit},
		{"0x_1", diag.InvalidDigit},
		{"12abc", diag.InvalidSuffix},
		{`"abc`, diag.UnterminatedString},
		{`"a\qb"`, diag.InvalidEscape},
		{"'ab'", diag.InvalidCharLiteral},
		{"''", diag.InvalidCharLiteral},
		{`'\n`, diag.UnterminatedChar},
		{"/* /* */", diag.UnterminatedComment},
		{"`", diag.UnexpectedCharacter},
	}

	for _, testcase := range testcases {
		tokens, diags := lexer.Lex(testcase.source)
		if len(diags) != 1 {
			t.Errorf("%q: expected one diagnostic, got:\n%v", testcase.source, diags)
			continue
		}
		if diags[0].Category != testcase.category || diags[0].Phase != diag.LexPhase {
			t.Errorf("%q: expected %s, got %s", testcase.source, testcase.category, diags[0].Category)
		}
		if tokens[len(tokens)-1].Kind != token.EOF {
			t.Errorf("%q: token stream must end with EOF", testcase.source)
		}
	}
}

func TestErrorRecovery(t *testing.T) {
	t.Parallel()

	tokens, diags := lexer.Lex("let x = 0b2; let y = 1;")
	if diags.Count(diag.InvalidDigit) != 1 {
		t.Fatalf("expected one invalid digit, got:\n%v", diags)
	}
	var kinds []token.Kind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	expected := []token.Kind{
		token.LET, token.IDENT, token.EQ, token.ERROR, token.SEMICOLON,
		token.LET, token.IDENT, token.EQ, token.INTEGER, token.SEMICOLON,
		token.EOF,
	}
	if diff := cmp.Diff(expected, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestStringEscapes(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		source string
		value  string
		prefix string
	}{
		{`"a\tb\n"`, "a\tb\n", ""},
		{`"\\ \" \' \0"`, "\\ \" ' \x00", ""},
		{`r"C:\path"`, `C:\path`, "r"},
		{`r##"a "# b"##`, `a "# b`, "r"},
		{`b"bytes"`, "bytes", "b"},
		{`c"cstr"`, "cstr", "c"},
		{"\"multi\nline\"", "multi\nline", ""},
	}

	for _, testcase := range testcases {
		tok := lexOne(t, testcase.source)
		expected := token.StrLit{Value: testcase.value, Prefix: testcase.prefix}
		if diff := cmp.Diff(expected, tok.Literal); diff != "" {
			t.Errorf("%s: literal mismatch (-want +got):\n%s", testcase.source, diff)
		}
	}
}

func TestCharsAndLifetimes(t *testing.T) {
	t.Parallel()

	tok := lexOne(t, `'\n'`)
	if diff := cmp.Diff(token.CharLit{Value: '\n'}, tok.Literal); diff != "" {
		t.Errorf("char mismatch (-want +got):\n%s", diff)
	}

	tokens, _ := lexer.Lex("fn f<'a>(x: &'static str) {}")
	var lifetimes []string
	for _, tok := range tokens {
		if tok.Kind == token.LIFETIME {
			lifetimes = append(lifetimes, tok.Lexeme)
		}
	}
	if diff := cmp.Diff([]string{"'a", "'static"}, lifetimes); diff != "" {
		t.Errorf("lifetimes mismatch (-want +got):\n%s", diff)
	}
}

func TestRawIdentifier(t *testing.T) {
	t.Parallel()

	tok := lexOne(t, "r#type")
	if tok.Kind != token.IDENT || tok.Lexeme != "type" || !tok.Raw {
		t.Errorf("expected raw identifier `type`, got %v", tok)
	}
}

func TestShiftIsOneToken(t *testing.T) {
	t.Parallel()

	tokens, _ := lexer.Lex("Vec<Vec<i32>>")
	last := tokens[len(tokens)-2]
	if last.Kind != token.SHR || last.Span.Length != 2 {
		t.Errorf("expected `>>` as a single token, got %v", last)
	}
}

func TestBoolLiterals(t *testing.T) {
	t.Parallel()

	tokens, _ := lexer.Lex("true false")
	if tokens[0].Literal != true || tokens[1].Literal != false {
		t.Errorf("expected decoded booleans, got %v %v", tokens[0].Literal, tokens[1].Literal)
	}
}

func TestWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	compact := "let x=a<<2;//c\nx+=1;"
	spaced := "let   x\n=\ta  <<  2 ;\n\n/* c */ x\n+= 1 ;  "

	shape := func(source string) []string {
		tokens, diags := lexer.Lex(source)
		if diags.HasErrors() {
			t.Fatalf("%q returned errors:\n%v", source, diags)
		}
		var out []string
		for _, tok := range tokens {
			out = append(out, tok.Kind.String()+" "+tok.Lexeme)
		}
		return out
	}

	if diff := cmp.Diff(shape(compact), shape(spaced)); diff != "" {
		t.Errorf("token streams differ (-compact +spaced):\n%s", diff)
	}
}

func TestScannerKeepsComments(t *testing.T) {
	t.Parallel()

	s := lexer.NewScanner("// one\nx /* two */")
	var kinds []token.Kind
	for tok := range s.Tokens() {
		kinds = append(kinds, tok.Kind)
	}
	expected := []token.Kind{token.COMMENT, token.IDENT, token.COMMENT, token.EOF}
	if diff := cmp.Diff(expected, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestScannerSaveRestore(t *testing.T) {
	t.Parallel()

	s := lexer.NewScanner("a b c")
	s.Next()
	saved := s.Save()
	first := s.Next()
	s.Next()
	s.Restore(saved)
	again := s.Next()
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("restored scan differs (-want +got):\n%s", diff)
	}

	s.Reset("z")
	if tok := s.Next(); tok.Lexeme != "z" || tok.Span.Column != 1 {
		t.Errorf("reset scanner returned %v", tok)
	}
}
