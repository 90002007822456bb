package tokenize

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeBasic(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"Hello, World!", []string{"hello", "world"}},
		{"SECTION", []string{"section"}},
		{"SeCtiOn", []string{"section"}},
		{"**bold**", []string{"bold"}},
		{"Here's", []string{"here", "s"}},
		{"a1 b2_c3", []string{"a1", "b2", "c3"}},
	}
	for _, c := range cases {
		got := Tokenize(c.in)
		if len(got) == 0 && len(c.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	texts := []string{
		"The Quick, Brown--Fox! Jumps.",
		"one\ntwo\tthree",
		"already tokens here",
	}
	for _, text := range texts {
		first := Tokenize(text)
		second := Tokenize(strings.Join(first, " "))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Tokenize not idempotent for %q: %v != %v", text, first, second)
		}
	}
}

func TestNormalizeCollapsesAndTrims(t *testing.T) {
	got := Normalize("  Section   Two!! ")
	want := "section two"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}
