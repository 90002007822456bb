package fuzzy

import "testing"

func TestNeighborhoodContainsKnownEdits(t *testing.T) {
	n := Neighborhood("cat")
	want := map[string]bool{
		"at":    false, // deletion
		"bat":   false, // substitution
		"cats":  false, // insertion at end
		"ccat":  false, // insertion at start
		"ca":    false, // deletion of trailing char
		"cast":  false, // insertion in middle
		"cot":   false, // substitution
	}
	for _, cand := range n {
		if _, ok := want[cand]; ok {
			want[cand] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("expected %q in neighborhood of %q", k, "cat")
		}
	}
}

func TestNeighborhoodNeverEqualsInput(t *testing.T) {
	for _, cand := range Neighborhood("dog") {
		if cand == "dog" {
			t.Fatalf("neighborhood must not contain the input token itself")
		}
	}
}

func TestCandidatesSortedAndBounded(t *testing.T) {
	vocab := map[string]struct{}{
		"cot": {}, "cat": {}, "bat": {}, "cast": {}, "zzz": {},
	}
	got := Candidates("cat", vocab, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates (bounded), got %v", got)
	}
	if got[0] > got[1] {
		t.Errorf("expected lexicographic order, got %v", got)
	}
}

func TestCandidatesExcludesUnknown(t *testing.T) {
	vocab := map[string]struct{}{"xyz123": {}}
	got := Candidates("cat", vocab, 50)
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}
