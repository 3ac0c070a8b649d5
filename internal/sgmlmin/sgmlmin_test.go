package sgmlmin

import (
	"strings"
	"testing"

	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/plugin"
)

func mustXML(t *testing.T, src string, reg *plugin.Registry) string {
	t.Helper()
	out, rep := MinifyXML([]byte(src), reg)
	if rep != nil {
		t.Fatalf("unexpected error minifying %q: %v", src, rep)
	}
	return string(out)
}

func mustHTML(t *testing.T, src string, reg *plugin.Registry) string {
	t.Helper()
	out, rep := MinifyHTML([]byte(src), reg)
	if rep != nil {
		t.Fatalf("unexpected error minifying %q: %v", src, rep)
	}
	return string(out)
}

func TestMinifyXMLBasic(t *testing.T) {
	got := mustXML(t, `<root>  <child a="1"   b="2">text</child>  </root>`, nil)
	want := `<root><child a="1" b="2">text</child></root>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMinifyXMLEmptyElementRewrite(t *testing.T) {
	got := mustXML(t, `<foo></foo>`, nil)
	if got != `<foo/>` {
		t.Fatalf("got %q", got)
	}
}

func TestMinifyXMLEmptyElementRewriteRequiresNoWhitespace(t *testing.T) {
	got := mustXML(t, `<foo> </foo>`, nil)
	if got != `<foo> </foo>` {
		t.Fatalf("got %q, expected no rewrite with intervening whitespace", got)
	}
}

func TestMinifyXMLCDATAPreserved(t *testing.T) {
	src := `<root><![CDATA[ a < b ]]></root>`
	got := mustXML(t, src, nil)
	if !strings.Contains(got, "<![CDATA[ a < b ]]>") {
		t.Fatalf("CDATA content was altered: %q", got)
	}
}

func TestMinifyXMLCommentStripped(t *testing.T) {
	got := mustXML(t, `<root><!-- hi --><a/></root>`, nil)
	if strings.Contains(got, "hi") {
		t.Fatalf("comment not removed: %q", got)
	}
}

func TestMinifyXMLCaseSensitiveTagNames(t *testing.T) {
	// Mismatched-case closing tag must not be treated as matching for the
	// self-closing rewrite, and must tokenize without error as long as it
	// is well-formed XML on its own terms.
	got := mustXML(t, `<Foo></Foo>`, nil)
	if got != `<Foo/>` {
		t.Fatalf("got %q", got)
	}
	got = mustXML(t, `<Foo></foo>`, nil)
	if got != `<Foo></foo>` {
		t.Fatalf("mismatched-case closing tag was rewritten: %q", got)
	}
}

func TestMinifyHTMLWhitespaceCollapse(t *testing.T) {
	src := `<html>  <body>  <p>  hello  world  </p>  </body>  </html>`
	want := `<html><body><p>hello world</p></body></html>`
	got := mustHTML(t, src, nil)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMinifyHTMLPrePreservesWhitespace(t *testing.T) {
	src := `<pre>  a   b  </pre>`
	got := mustHTML(t, src, nil)
	if got != src {
		t.Fatalf("got %q, want verbatim %q", got, src)
	}
}

func TestMinifyHTMLUnquotedAttributeValue(t *testing.T) {
	reg := plugin.New()
	reg.Register("javascript", func(input []byte) ([]byte, *diag.Report) {
		return []byte("x()"), nil
	})
	src := `<script type=module>x ( ) ;</script>`
	got := mustHTML(t, src, reg)
	if !strings.Contains(got, `type=module`) {
		t.Fatalf("unquoted attribute value not preserved: %q", got)
	}
	if !strings.Contains(got, "x()") {
		t.Fatalf("script body not minified: %q", got)
	}
}

func TestMinifyHTMLSelfClosingSlashDropped(t *testing.T) {
	got := mustHTML(t, `<br/>`, nil)
	if got != `<br>` {
		t.Fatalf("got %q", got)
	}
}

func TestMinifyHTMLAttributeQuotesDroppedWhenSafe(t *testing.T) {
	got := mustHTML(t, `<a href="foo">x</a>`, nil)
	if got != `<a href=foo>x</a>` {
		t.Fatalf("got %q", got)
	}
}

func TestMinifyHTMLAttributeQuotesKeptWhenUnsafe(t *testing.T) {
	got := mustHTML(t, `<a href="foo bar">x</a>`, nil)
	if got != `<a href="foo bar">x</a>` {
		t.Fatalf("got %q", got)
	}
}

func TestInlineScriptDelegatesToRegisteredMinifier(t *testing.T) {
	reg := plugin.New()
	reg.Register("javascript", func(input []byte) ([]byte, *diag.Report) {
		return []byte("minified"), nil
	})
	got := mustHTML(t, `<script>var x = 1 ;</script>`, reg)
	if !strings.Contains(got, "minified") {
		t.Fatalf("expected delegated minification, got %q", got)
	}
}

func TestInlineScriptJSONType(t *testing.T) {
	reg := plugin.New()
	reg.Register("json", func(input []byte) ([]byte, *diag.Report) {
		return []byte(`{"a":1}`), nil
	})
	got := mustHTML(t, `<script type="application/json+ld">{ "a" : 1 }</script>`, reg)
	if !strings.Contains(got, `{"a":1}`) {
		t.Fatalf("expected JSON delegation, got %q", got)
	}
}

func TestInlineScriptOtherTypePassesThroughVerbatim(t *testing.T) {
	reg := plugin.New()
	reg.Register("javascript", func(input []byte) ([]byte, *diag.Report) {
		t.Fatal("javascript minifier should not run for a non-executable type")
		return nil, nil
	})
	src := `<script type="text/plain">  raw stuff  </script>`
	got := mustHTML(t, src, reg)
	if !strings.Contains(got, "  raw stuff  ") {
		t.Fatalf("expected verbatim passthrough, got %q", got)
	}
}

func TestInlineStyleDelegatesToCSS(t *testing.T) {
	reg := plugin.New()
	reg.Register("css", func(input []byte) ([]byte, *diag.Report) {
		return []byte("a{color:red}"), nil
	})
	got := mustHTML(t, `<style> a { color : red ; } </style>`, reg)
	if !strings.Contains(got, "a{color:red}") {
		t.Fatalf("expected CSS delegation, got %q", got)
	}
}

func TestInlineBodyWithNoRegistryPassesThrough(t *testing.T) {
	src := `<script>var x=1;</script>`
	got := mustHTML(t, src, nil)
	if !strings.Contains(got, "var x=1;") {
		t.Fatalf("expected verbatim passthrough with nil registry, got %q", got)
	}
}

func TestInlineErrorOffsetIsTranslated(t *testing.T) {
	reg := plugin.New()
	reg.Register("javascript", func(input []byte) ([]byte, *diag.Report) {
		return nil, &diag.Report{Template: "bad token in line %d, column %d", Offset: 2}
	})
	_, rep := MinifyHTML([]byte(`<script>bad</script>`), reg)
	if rep == nil {
		t.Fatal("expected delegated error to propagate")
	}
	if rep.Offset != 10 {
		t.Fatalf("expected offset 10 (body starts at 8, error at body offset 2), got %d", rep.Offset)
	}
}

func TestUnclosedTagIsError(t *testing.T) {
	_, rep := MinifyXML([]byte(`<root`), nil)
	if rep == nil {
		t.Fatal("expected error for unclosed tag")
	}
}

func TestUnclosedCommentIsError(t *testing.T) {
	_, rep := MinifyXML([]byte(`<root><!-- oops</root>`), nil)
	if rep == nil {
		t.Fatal("expected error for unclosed comment")
	}
}

func TestMissingLeadingAngleIsError(t *testing.T) {
	_, rep := MinifyXML([]byte(`not xml`), nil)
	if rep == nil {
		t.Fatal("expected error for document not starting with <")
	}
}

func TestEmptyInputIsNotAnError(t *testing.T) {
	out, rep := MinifyXML([]byte(``), nil)
	if rep != nil {
		t.Fatalf("unexpected error on empty input: %v", rep)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestIdempotence(t *testing.T) {
	src := `<html>  <body>  <p>hi</p>  </body>  </html>`
	first := mustHTML(t, src, nil)
	second := mustHTML(t, first, nil)
	if first != second {
		t.Fatalf("not idempotent: %q vs %q", first, second)
	}
}
