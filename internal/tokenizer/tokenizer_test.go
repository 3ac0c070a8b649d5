package tokenizer

import "testing"

func TestCount_NonZeroForKnownText(t *testing.T) {
	tok := New()
	text := "Hello, world! This is a test of the tokenizer."
	count := tok.Count(text)
	if count == 0 {
		t.Errorf("Count returned 0 for known text %q; want non-zero", text)
	}
}

func TestCount_ZeroForEmptyText(t *testing.T) {
	tok := New()
	if count := tok.Count(""); count != 0 {
		t.Errorf("Count returned %d for empty text; want 0", count)
	}
}

func TestCount_MinifiedOutputUsesFewerOrEqualTokens(t *testing.T) {
	tok := New()
	input := "function add( a , b ) {\n  return a + b;\n}\n"
	minified := "function add(a,b){return a+b}"

	if tok.Count(minified) > tok.Count(input) {
		t.Error("minified text should never tokenize to more tokens than the original")
	}
}
