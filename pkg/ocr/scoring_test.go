package ocr

import "testing"

func TestScoreLengthMonotonic(t *testing.T) {
	a := Candidate{Text: "short text", Confidence: 80}
	b := Candidate{Text: "a considerably longer transcription", Confidence: 80}
	if Score(b) < Score(a) {
		t.Fatalf("longer text scored lower: %f < %f", Score(b), Score(a))
	}
}

func TestScoreConfidenceMonotonic(t *testing.T) {
	a := Candidate{Text: "same length text", Confidence: 40}
	b := Candidate{Text: "same length text", Confidence: 90}
	if Score(b) < Score(a) {
		t.Fatalf("higher confidence scored lower: %f < %f", Score(b), Score(a))
	}
}

func TestSelectRejectsShortCandidates(t *testing.T) {
	cands := []Candidate{
		{Method: "basic", Config: "default", Text: "12345", Confidence: 100}, // len 5, at the gate
		{Method: "otsu", Config: "default", Text: "   I  ", Confidence: 99},
	}
	if _, _, ok := SelectBest(cands); ok {
		t.Fatalf("candidate at or below the length gate was selected")
	}
}

func TestSelectPrefersProductScore(t *testing.T) {
	cands := []Candidate{
		{Method: "basic", Config: "default", Text: "Weight", Confidence: 99}, // 6 * 0.99 = 5.94
		{Method: "otsu", Config: "auto_page", Text: "InBody Analysis Weight: 75.2 kg", Confidence: 60},
	}
	best, score, ok := SelectBest(cands)
	if !ok {
		t.Fatalf("no candidate selected")
	}
	if best.Method != "otsu" {
		t.Fatalf("expected long moderate-confidence candidate to win, got %s+%s score=%f", best.Method, best.Config, score)
	}
}

func TestSelectTieKeepsEarliest(t *testing.T) {
	cands := []Candidate{
		{Method: "basic", Config: "default", Text: "identical", Confidence: 80},
		{Method: "otsu", Config: "default", Text: "identical", Confidence: 80},
	}
	best, _, ok := SelectBest(cands)
	if !ok {
		t.Fatalf("no candidate selected")
	}
	if best.Method != "basic" {
		t.Fatalf("tie did not keep the earliest candidate, got %s", best.Method)
	}
}

func TestSelectSkipsZeroScore(t *testing.T) {
	cands := []Candidate{
		{Method: "basic", Config: "default", Text: "long enough text", Confidence: 0},
	}
	if _, _, ok := SelectBest(cands); ok {
		t.Fatalf("zero-confidence candidate selected")
	}
}
