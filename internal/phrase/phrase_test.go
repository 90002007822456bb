package phrase

import "testing"

func TestParseExtractsPhrasesInOrder(t *testing.T) {
	p := Parse(`find "section two" and also "bold text" please`)
	if len(p.Phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %d: %v", len(p.Phrases), p.Phrases)
	}
	if p.Phrases[0] != "section two" || p.Phrases[1] != "bold text" {
		t.Errorf("unexpected phrases: %v", p.Phrases)
	}
	wantTokens := []string{"find", "and", "also", "please"}
	if len(p.Tokens) != len(wantTokens) {
		t.Fatalf("tokens = %v, want %v", p.Tokens, wantTokens)
	}
	for i, tok := range wantTokens {
		if p.Tokens[i] != tok {
			t.Errorf("token[%d] = %q, want %q", i, p.Tokens[i], tok)
		}
	}
}

func TestParseNoPhrases(t *testing.T) {
	p := Parse("plain query here")
	if len(p.Phrases) != 0 {
		t.Errorf("expected no phrases, got %v", p.Phrases)
	}
	if len(p.Tokens) != 3 {
		t.Errorf("expected 3 tokens, got %v", p.Tokens)
	}
}

func TestFindMatchesNonOverlapping(t *testing.T) {
	text := Normalize("aa aa aa")
	matches := FindMatches(text, "aa aa")
	// Leftmost-first, non-overlapping: one match at [0,5), next search
	// resumes at offset 5 where "aa" alone remains — no second match.
	if len(matches) != 1 {
		t.Fatalf("expected 1 non-overlapping match, got %d: %v", len(matches), matches)
	}
	if matches[0].Start != 0 || matches[0].End != 5 {
		t.Errorf("unexpected range: %+v", matches[0])
	}
}

func TestFindMatchesEmptyPhrase(t *testing.T) {
	if m := FindMatches("anything", ""); m != nil {
		t.Errorf("expected nil for empty phrase, got %v", m)
	}
}

func TestContainsAll(t *testing.T) {
	text := Normalize("this document has a bold section and a plain one")
	if !ContainsAll(text, []string{"bold section", "plain one"}) {
		t.Error("expected both phrases to be found")
	}
	if ContainsAll(text, []string{"bold section", "missing phrase"}) {
		t.Error("expected ContainsAll to fail when one phrase is absent")
	}
}
