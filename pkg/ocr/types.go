package ocr

import "image"

// Rendering is one deterministically preprocessed version of the source image.
// The bank always emits renderings in the same order under the same names.
type Rendering struct {
	Method string
	Image  *image.NRGBA
}

// Candidate is the result of running one rendering through one recognition
// config. Empty text with zero confidence is a valid candidate, not an error.
type Candidate struct {
	Method     string
	Config     string
	Text       string
	Confidence float64 // mean per-word confidence, 0..100
	Tokens     int
}

// Verdict is the selected best candidate returned to the caller.
type Verdict struct {
	Text   string
	Method string // "<rendering>+<config>", "original_fallback" or "failed"
	Score  float64
}

const (
	// MinSelectLen is the exclusive lower bound on trimmed text length for a
	// candidate to be selectable during the sweep.
	MinSelectLen = 5
	// FallbackLen is the trimmed length below which the original-image
	// fallback pass is attempted after the full sweep.
	FallbackLen = 10

	// MethodFallback marks a verdict produced by the raw-image fallback pass.
	MethodFallback = "original_fallback"
	// MethodFailed marks a verdict where even the fallback pass errored.
	MethodFailed = "failed"
	// NoTextSentinel is the verdict text for the failed path.
	NoTextSentinel = "No text detected"
)
