package ocr

import "strings"

// Score balances "found more content" against "engine trusts what it found":
// neither raw length nor raw confidence alone is reliable. A short
// high-confidence misread on a blank page must lose to a long
// moderate-confidence full transcription.
func Score(c Candidate) float64 {
	return float64(len(strings.TrimSpace(c.Text))) * (c.Confidence / 100)
}

// SelectBest reduces the candidate sweep to a single winner: strict
// greater-than on score so ties keep the earliest-seen candidate, and a
// minimum trimmed length gate so trivial noise matches never win regardless
// of confidence. ok is false when nothing passed the gate.
func SelectBest(cands []Candidate) (best Candidate, bestScore float64, ok bool) {
	for _, c := range cands {
		if len(strings.TrimSpace(c.Text)) <= MinSelectLen {
			continue
		}
		if s := Score(c); s > bestScore {
			best = c
			bestScore = s
			ok = true
		}
	}
	return best, bestScore, ok
}
