package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// Engine abstracts the text-recognition primitive so the pipeline can be
// exercised without a tesseract install. Recognize returns the raw text, the
// mean per-word confidence (0..100) and the word count. A blank page is a
// valid result (empty text, zero confidence), not an error.
type Engine interface {
	Recognize(img image.Image, cfg Config) (text string, confidence float64, tokens int, err error)
	Available() error
}

// TesseractEngine drives a local tesseract install through gosseract. A fresh
// client is created per call: gosseract clients are not safe for reuse across
// differing page segmentation modes.
type TesseractEngine struct {
	Lang string
}

// NewTesseractEngine returns an engine recognizing the given language
// (defaults to "eng").
func NewTesseractEngine(lang string) *TesseractEngine {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractEngine{Lang: lang}
}

// Available reports whether the tesseract runtime and language data can be
// reached at all.
func (e *TesseractEngine) Available() error {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if len(langs) == 0 {
		return fmt.Errorf("%w: no language data installed", ErrEngineUnavailable)
	}
	return nil
}

// Recognize runs one tesseract pass over img under cfg.
func (e *TesseractEngine) Recognize(img image.Image, cfg Config) (string, float64, int, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", 0, 0, fmt.Errorf("encode rendering: %w", err)
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.Lang); err != nil {
		return "", 0, 0, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(cfg.PSM); err != nil {
		return "", 0, 0, fmt.Errorf("set psm: %w", err)
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			return "", 0, 0, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, 0, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", 0, 0, fmt.Errorf("recognize: %w", err)
	}
	conf, tokens := meanWordConfidence(client)
	return text, conf, tokens, nil
}

// meanWordConfidence averages per-word confidences, ignoring non-positive
// entries the way tesseract reports structural boxes.
func meanWordConfidence(client *gosseract.Client) (float64, int) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, 0
	}
	var sum float64
	n := 0
	for _, b := range boxes {
		if b.Confidence > 0 {
			sum += b.Confidence
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}
