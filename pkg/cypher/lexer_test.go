package cypher

import "testing"

func TestLexerKeywordDisambiguation(t *testing.T) {
	// "count" must lex as an identifier (it's a function name, not a
	// reserved word) while "MATCH" lexes as a keyword token.
	lex := NewLexer("MATCH (n:Person) WHERE n.age > 21 RETURN count(n)")
	tok, err := lex.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Kind != TokKeyword || tok.Text != "MATCH" {
		t.Fatalf("expected MATCH keyword, got %v %q", tok.Kind, tok.Text)
	}

	var countTok Token
	for {
		tok, err = lex.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.Kind == TokEOF {
			break
		}
		if tok.Text == "count" {
			countTok = tok
		}
	}
	if countTok.Kind != TokIdent {
		t.Fatalf("expected count to lex as identifier, got %v", countTok.Kind)
	}
}

func TestLexerStringLiteralEscapes(t *testing.T) {
	lex := NewLexer(`"it's a test"`)
	tok, err := lex.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Kind != TokString {
		t.Fatalf("expected string token, got %v (%q)", tok.Kind, tok.Text)
	}
	if tok.Text != "it's a test" {
		t.Fatalf("expected literal apostrophe preserved, got %q", tok.Text)
	}
}

func TestLexerNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind TokenKind
	}{
		{"42", TokInt},
		{"3.14", TokFloat},
		{"2e10", TokFloat},
	}
	for _, c := range cases {
		lex := NewLexer(c.src)
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("src %q: Next: %v", c.src, err)
		}
		if tok.Kind != c.kind {
			t.Fatalf("src %q: expected kind %v, got %v", c.src, c.kind, tok.Kind)
		}
	}
}

func TestLexerPositionTracking(t *testing.T) {
	lex := NewLexer("MATCH\n(n)")
	if _, err := lex.Next(); err != nil { // MATCH
		t.Fatalf("Next: %v", err)
	}
	tok, err := lex.Next() // (
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if tok.Line != 2 {
		t.Fatalf("expected token on line 2 after newline, got line %d", tok.Line)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	lex := NewLexer(`"unterminated`)
	if _, err := lex.Next(); err == nil {
		t.Fatalf("expected error for unterminated string literal")
	}
}
