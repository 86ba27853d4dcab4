package ocr

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
)

// Debug runs issue one default-config pass per rendering, in bank order.
type debugEngine struct {
	calls int
	fn    func(call int) (string, float64, int, error)
}

func (e *debugEngine) Available() error { return nil }

func (e *debugEngine) Recognize(img image.Image, cfg Config) (string, float64, int, error) {
	if cfg.Name != DefaultConfig.Name {
		return "", 0, 0, errors.New("debug mode must only use the default config")
	}
	n := e.calls
	e.calls++
	return e.fn(n)
}

func TestDebugPreprocessPersistsAndReports(t *testing.T) {
	eng := &debugEngine{fn: func(call int) (string, float64, int, error) {
		if call == 3 { // otsu
			return "Weight: 75.2 kg InBody Analysis", 92, 5, nil
		}
		return "faint", 20, 1, nil
	}}
	dir := t.TempDir()
	report, err := NewPipeline(eng).DebugPreprocess(testPNG(t), dir)
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	if report.MethodsTested != len(BankMethods()) {
		t.Fatalf("expected %d methods, got %d", len(BankMethods()), report.MethodsTested)
	}
	if report.BestMethod != "otsu" {
		t.Fatalf("expected best_method otsu, got %q", report.BestMethod)
	}
	for _, name := range []string{"00_original.png", "01_grayscale.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	for _, m := range BankMethods() {
		entry, ok := report.Methods[m]
		if !ok {
			t.Fatalf("missing report entry for %s", m)
		}
		if entry.Err != "" {
			t.Fatalf("unexpected error for %s: %s", m, entry.Err)
		}
		if _, err := os.Stat(entry.ImagePath); err != nil {
			t.Fatalf("rendering image not persisted for %s: %v", m, err)
		}
	}
	otsu := report.Methods["otsu"]
	if otsu.TextLength != len(otsu.Text) || otsu.Confidence != 92 {
		t.Fatalf("otsu entry malformed: %+v", otsu)
	}
}

func TestDebugPreprocessIsolatesFailures(t *testing.T) {
	eng := &debugEngine{fn: func(call int) (string, float64, int, error) {
		if call == 1 { // morphological
			return "", 0, 0, errors.New("injected fault")
		}
		return "stable transcription", 70, 2, nil
	}}
	report, err := NewPipeline(eng).DebugPreprocess(testPNG(t), t.TempDir())
	if err != nil {
		t.Fatalf("debug: %v", err)
	}
	if report.Methods["morphological"].Err == "" {
		t.Fatalf("expected inline error for failed method")
	}
	if report.Methods["basic"].Err != "" || report.Methods["otsu"].Err != "" {
		t.Fatalf("one failing method aborted the others: %+v", report.Methods)
	}
	if report.BestMethod != "basic" {
		t.Fatalf("expected basic (earliest tie) as best, got %q", report.BestMethod)
	}
}

func TestDebugPreprocessDecodeError(t *testing.T) {
	eng := &debugEngine{fn: func(call int) (string, float64, int, error) { return "", 0, 0, nil }}
	if _, err := NewPipeline(eng).DebugPreprocess([]byte("garbage"), t.TempDir()); !errors.Is(err, ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
}
