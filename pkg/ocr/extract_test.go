package ocr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
)

// scriptEngine replays a scripted response per call index. The sweep order is
// deterministic (renderings outer, configs inner), so call n maps to
// rendering n/10, config n%10; call 60 is the fallback pass.
type scriptEngine struct {
	mu       sync.Mutex
	calls    int
	availErr error
	fn       func(call int, cfg Config) (string, float64, int, error)
}

func (e *scriptEngine) Available() error { return e.availErr }

func (e *scriptEngine) Recognize(img image.Image, cfg Config) (string, float64, int, error) {
	e.mu.Lock()
	n := e.calls
	e.calls++
	e.mu.Unlock()
	return e.fn(n, cfg)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(48, 32, color.NRGBA{255, 255, 255, 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestSweepCompleteness(t *testing.T) {
	eng := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		return "a transcription with plenty of content", 90, 6, nil
	}}
	v, err := NewPipeline(eng).ExtractText(testPNG(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := len(BankMethods()) * len(Configs())
	if eng.calls != want {
		t.Fatalf("expected exactly %d recognition calls, got %d", want, eng.calls)
	}
	// all scores tie; the earliest combination must win
	if v.Method != "basic+default" {
		t.Fatalf("tie broken wrongly: %s", v.Method)
	}
}

func TestIsolationOfFailedCombination(t *testing.T) {
	eng := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		switch call {
		case 0:
			return "", 0, 0, errors.New("injected fault")
		case 13: // morphological + sparse_text
			return "the quick brown fox jumps over", 90, 6, nil
		default:
			return "", 0, 0, nil
		}
	}}
	v, err := NewPipeline(eng).ExtractText(testPNG(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.Method != "morphological+sparse_text" {
		t.Fatalf("fault in one combination changed the verdict: %s", v.Method)
	}
}

func TestFallbackOnShortBest(t *testing.T) {
	eng := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		if call == 60 {
			return "recovered full page text from the raw image", 55, 8, nil
		}
		// passes the >5 gate but stays under the <10 fallback bar
		return "12345678", 95, 1, nil
	}}
	v, err := NewPipeline(eng).ExtractText(testPNG(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.Method != MethodFallback {
		t.Fatalf("expected %s, got %s", MethodFallback, v.Method)
	}
	if v.Text != "recovered full page text from the raw image" {
		t.Fatalf("fallback text not used: %q", v.Text)
	}
}

func TestFallbackUsedEvenWhenShort(t *testing.T) {
	eng := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		if call == 60 {
			return "ok", 10, 1, nil
		}
		return "", 0, 0, nil
	}}
	v, err := NewPipeline(eng).ExtractText(testPNG(t))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.Method != MethodFallback || v.Text != "ok" {
		t.Fatalf("short fallback result not used unconditionally: %+v", v)
	}
}

func TestFailedVerdictIsNotAnError(t *testing.T) {
	eng := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		if call == 60 {
			return "", 0, 0, errors.New("tesseract crashed")
		}
		return "", 0, 0, nil
	}}
	v, err := NewPipeline(eng).ExtractText(testPNG(t))
	if err != nil {
		t.Fatalf("failed fallback must not surface an error, got %v", err)
	}
	if v.Method != MethodFailed || v.Text != NoTextSentinel {
		t.Fatalf("expected failed sentinel verdict, got %+v", v)
	}
}

func TestDecodeError(t *testing.T) {
	eng := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		return "", 0, 0, nil
	}}
	_, err := NewPipeline(eng).ExtractText([]byte("definitely not an image"))
	if !errors.Is(err, ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
	if eng.calls != 0 {
		t.Fatalf("engine invoked despite undecodable input")
	}
}

func TestEngineUnavailable(t *testing.T) {
	eng := &scriptEngine{availErr: ErrEngineUnavailable}
	_, err := NewPipeline(eng).ExtractText(testPNG(t))
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestConcurrentRunsIdentical(t *testing.T) {
	// stateless engine: result depends only on the config, so two concurrent
	// runs over the same bytes must agree bit for bit
	stateless := &scriptEngine{fn: func(call int, cfg Config) (string, float64, int, error) {
		if cfg.Name == "sparse_text" {
			return "InBody Analysis Weight: 75.2 kg", 88, 5, nil
		}
		return "minor result", 30, 2, nil
	}}
	p := NewPipeline(stateless)
	data := testPNG(t)

	var wg sync.WaitGroup
	verdicts := make([]Verdict, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.ExtractText(data)
			if err != nil {
				t.Errorf("extract %d: %v", i, err)
				return
			}
			verdicts[i] = v
		}(i)
	}
	wg.Wait()
	if verdicts[0] != verdicts[1] {
		t.Fatalf("concurrent verdicts differ: %+v vs %+v", verdicts[0], verdicts[1])
	}
}
