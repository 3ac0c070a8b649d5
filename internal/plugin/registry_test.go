package plugin

import (
	"sort"
	"testing"

	"github.com/minifyco/minify/internal/diag"
)

func TestRegistryLookup(t *testing.T) {
	r := New()
	r.Register("css", func(input []byte) ([]byte, *diag.Report) {
		return input, nil
	})

	fn, ok := r.Lookup("css")
	if !ok {
		t.Fatal("expected css to be registered")
	}
	out, rep := fn([]byte("a{}"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if string(out) != "a{}" {
		t.Fatalf("got %q", out)
	}

	if _, ok := r.Lookup("javascript"); ok {
		t.Fatal("expected javascript to be unregistered")
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := New()
	r.Register("json", func(input []byte) ([]byte, *diag.Report) { return []byte("first"), nil })
	r.Register("json", func(input []byte) ([]byte, *diag.Report) { return []byte("second"), nil })

	fn, ok := r.Lookup("json")
	if !ok {
		t.Fatal("expected json to be registered")
	}
	out, _ := fn(nil)
	if string(out) != "second" {
		t.Fatalf("expected overwrite to win, got %q", out)
	}
}

func TestRegistryFormats(t *testing.T) {
	r := New()
	r.Register("css", func(input []byte) ([]byte, *diag.Report) { return input, nil })
	r.Register("json", func(input []byte) ([]byte, *diag.Report) { return input, nil })

	formats := r.Formats()
	sort.Strings(formats)
	if len(formats) != 2 || formats[0] != "css" || formats[1] != "json" {
		t.Fatalf("unexpected formats: %v", formats)
	}
}

func TestErrUnknownFormat(t *testing.T) {
	err := &ErrUnknownFormat{Format: "yaml"}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
