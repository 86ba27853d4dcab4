package ocr

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// MethodReport is the per-rendering entry of a debug run. Err is set inline
// when a single method fails; the others still report.
type MethodReport struct {
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence"`
	TextLength int     `json:"text_length"`
	ImagePath  string  `json:"image_path"`
	Err        string  `json:"error,omitempty"`
}

// DebugReport is the structured result of DebugPreprocess, suitable for JSON
// serialization.
type DebugReport struct {
	Methods       map[string]MethodReport `json:"methods"`
	BestMethod    string                  `json:"best_method,omitempty"`
	OutputDir     string                  `json:"debug_images_saved_to"`
	MethodsTested int                     `json:"total_methods_tested"`
}

// DebugPreprocess persists every intermediate rendering to outDir and runs
// only the default config per rendering: debug mode trades matrix
// completeness for speed and inspectability. A failure in one method is
// reported inline and never aborts the others.
func (p *Pipeline) DebugPreprocess(data []byte, outDir string) (*DebugReport, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir debug dir: %w", err)
	}
	_ = imaging.Save(imaging.Clone(img), filepath.Join(outDir, "00_original.png"))
	_ = imaging.Save(imaging.Grayscale(img), filepath.Join(outDir, "01_grayscale.png"))

	report := &DebugReport{Methods: map[string]MethodReport{}, OutputDir: outDir}
	renderings := Bank(img)
	report.MethodsTested = len(renderings)

	bestScore := 0.0
	for i, r := range renderings {
		imgPath := filepath.Join(outDir, fmt.Sprintf("%02d_%s.png", i+2, r.Method))
		if err := imaging.Save(r.Image, imgPath); err != nil {
			report.Methods[r.Method] = MethodReport{Err: fmt.Sprintf("save: %v", err), ImagePath: imgPath}
			continue
		}
		text, conf, _, err := p.Engine.Recognize(r.Image, DefaultConfig)
		if err != nil {
			report.Methods[r.Method] = MethodReport{Err: err.Error(), ImagePath: imgPath}
			continue
		}
		trimmed := strings.TrimSpace(text)
		report.Methods[r.Method] = MethodReport{
			Text:       trimmed,
			Confidence: conf,
			TextLength: len(trimmed),
			ImagePath:  imgPath,
		}
		// same product score as the production selector, restricted to the
		// single-config results gathered here
		if s := float64(len(trimmed)) * (conf / 100); s > bestScore {
			bestScore = s
			report.BestMethod = r.Method
		}
	}
	return report, nil
}
