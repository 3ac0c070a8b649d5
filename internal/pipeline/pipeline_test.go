package pipeline

import (
	"context"
	"testing"

	"github.com/minifyco/minify/internal/diag"
)

func identity(body []byte) ([]byte, []int, *diag.Report) {
	offsetMap := make([]int, len(body))
	for i := range offsetMap {
		offsetMap[i] = i
	}
	return append([]byte(nil), body...), offsetMap, nil
}

func TestCoordinatorRunSuccess(t *testing.T) {
	delegate := func(input []byte) ([]byte, *diag.Report) {
		return []byte("minified"), nil
	}
	c := New("css", identity, delegate, func(b []byte) []byte { return append([]byte("["), append(b, ']')...) })

	out, rep := c.Run(context.Background(), []byte("a { }"), 10)
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if string(out) != "[minified]" {
		t.Fatalf("got %q", out)
	}
}

func TestCoordinatorRunDelegateErrorOffsetTranslated(t *testing.T) {
	delegate := func(input []byte) ([]byte, *diag.Report) {
		return nil, &diag.Report{Template: "bad token in line %d, column %d", Offset: 3}
	}
	c := New("js", identity, delegate, func(b []byte) []byte { return b })

	_, rep := c.Run(context.Background(), []byte("abcdef"), 100)
	if rep == nil {
		t.Fatal("expected error")
	}
	if rep.Offset != 103 {
		t.Fatalf("expected translated offset 103, got %d", rep.Offset)
	}
}

func TestCoordinatorRunDecodeErrorOffsetTranslated(t *testing.T) {
	decode := func(body []byte) ([]byte, []int, *diag.Report) {
		return nil, nil, &diag.Report{Template: "bad entity in line %d, column %d", Offset: 2}
	}
	c := New("js", decode, func(b []byte) ([]byte, *diag.Report) { return b, nil }, func(b []byte) []byte { return b })

	_, rep := c.Run(context.Background(), []byte("a&bogus;c"), 50)
	if rep == nil {
		t.Fatal("expected error")
	}
	if rep.Offset != 52 {
		t.Fatalf("expected translated offset 52, got %d", rep.Offset)
	}
}

func TestCoordinatorPanicRecovered(t *testing.T) {
	delegate := func(input []byte) ([]byte, *diag.Report) {
		panic("boom")
	}
	c := New("json", identity, delegate, func(b []byte) []byte { return b })

	_, rep := c.Run(context.Background(), []byte("{}"), 0)
	if rep == nil {
		t.Fatal("expected panic to surface as an error report")
	}
}

func TestCoordinatorTimings(t *testing.T) {
	delegate := func(input []byte) ([]byte, *diag.Report) { return input, nil }
	c := New("css", identity, delegate, func(b []byte) []byte { return b })
	c.Run(context.Background(), []byte("x"), 0)

	timings := c.Timings()
	for _, stage := range []string{"decode", "delegate", "encode"} {
		if _, ok := timings[stage]; !ok {
			t.Errorf("expected timing for stage %q", stage)
		}
	}
}
