package ocr

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/disintegration/imaging"
)

// Pipeline runs the full preprocessing-bank x config-table sweep over an
// input image and selects the best transcription. Engine is injected so
// tests can substitute a deterministic fake.
type Pipeline struct {
	Engine Engine
}

// NewPipeline wires a pipeline around the given recognition engine.
func NewPipeline(engine Engine) *Pipeline {
	return &Pipeline{Engine: engine}
}

// ExtractText recovers the most plausible transcription of the image bytes.
// Every rendering x config combination is evaluated before a verdict is
// chosen; per-combination recognition failures are skipped and never abort
// the sweep. Only an undecodable image or an unusable engine is fatal.
func (p *Pipeline) ExtractText(data []byte) (Verdict, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if err := p.Engine.Available(); err != nil {
		return Verdict{}, err
	}

	cands := p.sweep(img)
	best, bestScore, ok := SelectBest(cands)

	if !ok || len(strings.TrimSpace(best.Text)) < FallbackLen {
		// Nothing substantial anywhere in the matrix: one more pass on the
		// original, unprocessed image with the default config, used
		// unconditionally even if also short.
		text, conf, tokens, ferr := p.Engine.Recognize(img, DefaultConfig)
		if ferr != nil {
			log.Printf("ocr: fallback pass failed: %v", ferr)
			return Verdict{Text: NoTextSentinel, Method: MethodFailed}, nil
		}
		fb := Candidate{Method: MethodFallback, Config: DefaultConfig.Name, Text: text, Confidence: conf, Tokens: tokens}
		v := Verdict{Text: strings.TrimSpace(text), Method: MethodFallback, Score: Score(fb)}
		log.Printf("ocr: completed method=%s score=%.2f", v.Method, v.Score)
		return v, nil
	}

	v := Verdict{
		Text:   strings.TrimSpace(best.Text),
		Method: best.Method + "+" + best.Config,
		Score:  bestScore,
	}
	log.Printf("ocr: completed method=%s score=%.2f candidates=%d text=%q", v.Method, v.Score, len(cands), snippet(v.Text, 80))
	return v, nil
}

// sweep evaluates the full cross product in deterministic order: renderings
// outer, configs inner. Failed combinations are logged and excluded; the
// others are unaffected.
func (p *Pipeline) sweep(img image.Image) []Candidate {
	renderings := Bank(img)
	configs := Configs()
	cands := make([]Candidate, 0, len(renderings)*len(configs))
	for _, r := range renderings {
		for _, cfg := range configs {
			text, conf, tokens, err := p.Engine.Recognize(r.Image, cfg)
			if err != nil {
				log.Printf("ocr: pass %s+%s failed: %v", r.Method, cfg.Name, err)
				continue
			}
			cands = append(cands, Candidate{
				Method:     r.Method,
				Config:     cfg.Name,
				Text:       text,
				Confidence: conf,
				Tokens:     tokens,
			})
		}
	}
	return cands
}
