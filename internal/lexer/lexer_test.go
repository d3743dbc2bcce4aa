package lexer

import "testing"

func TestBasicTokens(t *testing.T) {
	input := `module HTTP;

type Request = unit {
    method: /GET|POST/;
    uri: bytes &until=b" ";
    n: uint8;
};`

	l := New(input)
	expected := []struct {
		typ     TokenType
		literal string
	}{
		{MODULE, "module"},
		{IDENT, "HTTP"},
		{SEMICOLON, ";"},
		{TYPE, "type"},
		{IDENT, "Request"},
		{ASSIGN, "="},
		{UNIT, "unit"},
		{LBRACE, "{"},
		{IDENT, "method"},
		{COLON, ":"},
		{REGEXP, "GET|POST"},
		{SEMICOLON, ";"},
		{IDENT, "uri"},
		{COLON, ":"},
		{IDENT, "bytes"},
		{ATTRIBUTE, "&until"},
		{ASSIGN, "="},
		{BYTES, " "},
		{SEMICOLON, ";"},
		{IDENT, "n"},
		{COLON, ":"},
		{IDENT, "uint8"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{SEMICOLON, ";"},
		{EOF, ""},
	}

	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Fatalf("token %d: type = %s, want %s (literal %q)", i, tok.Type, exp.typ, tok.Literal)
		}
		if tok.Literal != exp.literal {
			t.Fatalf("token %d: literal = %q, want %q", i, tok.Literal, exp.literal)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		typ     TokenType
		literal string
	}{
		{"123", INT, "123"},
		{"0xff", INT, "0xff"},
		{"1.5", FLOAT, "1.5"},
		{"3e10", FLOAT, "3e10"},
		{"2.5e-3", FLOAT, "2.5e-3"},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.literal {
			t.Errorf("%q: got %s %q, want %s %q", tt.input, tok.Type, tok.Literal, tt.typ, tt.literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\n\t\"\\x"`)
	tok := l.NextToken()
	if tok.Type != STRING {
		t.Fatalf("type = %s, want STRING", tok.Type)
	}
	if tok.Literal != "a\n\t\"\\x" {
		t.Errorf("literal = %q", tok.Literal)
	}
}

func TestHexEscapeInBytes(t *testing.T) {
	l := New(`b"\x0d\x0a"`)
	tok := l.NextToken()
	if tok.Type != BYTES {
		t.Fatalf("type = %s, want BYTES", tok.Type)
	}
	if tok.Literal != "\r\n" {
		t.Errorf("literal = %q, want CRLF", tok.Literal)
	}
}

func TestSlashDisambiguation(t *testing.T) {
	// After a value, '/' is division; in expression position it opens a
	// regex literal.
	l := New(`a / b`)
	if tok := l.NextToken(); tok.Type != IDENT {
		t.Fatalf("got %s", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != SLASH {
		t.Fatalf("after ident: got %s, want /", tok.Type)
	}

	l = New(`= /ab+/`)
	if tok := l.NextToken(); tok.Type != ASSIGN {
		t.Fatalf("got %s", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != REGEXP || tok.Literal != "ab+" {
		t.Fatalf("after '=': got %s %q, want regexp", tok.Type, tok.Literal)
	}
}

func TestProperties(t *testing.T) {
	l := New(`%byte-order %init %mime-type`)
	for _, want := range []string{"%byte-order", "%init", "%mime-type"} {
		tok := l.NextToken()
		if tok.Type != PROPERTY || tok.Literal != want {
			t.Errorf("got %s %q, want PROPERTY %q", tok.Type, tok.Literal, want)
		}
	}
}

func TestAttributes(t *testing.T) {
	l := New(`&size &until-including &parse-from`)
	for _, want := range []string{"&size", "&until-including", "&parse-from"} {
		tok := l.NextToken()
		if tok.Type != ATTRIBUTE || tok.Literal != want {
			t.Errorf("got %s %q, want ATTRIBUTE %q", tok.Type, tok.Literal, want)
		}
	}
}

func TestOperators(t *testing.T) {
	l := New(`== != <= >= << >> && || ** ?. .? :: -> ++ -- $$`)
	want := []TokenType{EQ, NOT_EQ, LE, GE, SHL, SHR, AND_AND, OR_OR, POWER,
		HAS_MEMBER, TRY_DOT, DOUBLE_COLON, ARROW, PLUS_PLUS, MINUS_MINUS, DOLLAR_DOLLAR}
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w {
			t.Errorf("token %d: got %s, want %s", i, tok.Type, w)
		}
	}
}

func TestComments(t *testing.T) {
	l := New("a # comment to end of line\nb")
	if tok := l.NextToken(); tok.Literal != "a" {
		t.Fatalf("got %q", tok.Literal)
	}
	if tok := l.NextToken(); tok.Literal != "b" {
		t.Fatalf("got %q, comments must be skipped", tok.Literal)
	}
}

func TestPositions(t *testing.T) {
	l := New("ab\ncd")
	tok := l.NextToken()
	if tok.Pos.Line != 1 || tok.Pos.Column != 1 {
		t.Errorf("first token at %s, want 1:1", tok.Pos)
	}
	tok = l.NextToken()
	if tok.Pos.Line != 2 || tok.Pos.Column != 1 {
		t.Errorf("second token at %s, want 2:1", tok.Pos)
	}
}

func TestSaveRestore(t *testing.T) {
	l := New("a b c")
	_ = l.NextToken()
	state := l.SaveState()
	b1 := l.NextToken()
	l.RestoreState(state)
	b2 := l.NextToken()
	if b1.Literal != b2.Literal {
		t.Errorf("restore: got %q then %q", b1.Literal, b2.Literal)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New("\"abc\n")
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("got %s, want ILLEGAL", tok.Type)
	}
	if len(l.Errors()) == 0 {
		t.Error("expected a lexer error")
	}
}
