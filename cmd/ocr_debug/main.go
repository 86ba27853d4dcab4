package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"coachbe/pkg/ocr"
)

// Runs every preprocessing method against a single image and dumps the
// per-method OCR results plus the intermediate images. Handy when a receipt
// or screenshot extracts poorly and you want to see which rendering helps.
func main() {
	in := flag.String("in", "", "path to image file")
	out := flag.String("out", "debug_images", "directory for intermediate images")
	lang := flag.String("lang", "eng", "tesseract language")
	flag.Parse()
	if *in == "" {
		log.Fatal("--in is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}
	engine := ocr.NewTesseractEngine(*lang)
	if err := engine.Available(); err != nil {
		log.Fatalf("tesseract unavailable: %v", err)
	}
	pipeline := ocr.NewPipeline(engine)

	report, err := pipeline.DebugPreprocess(data, *out)
	if err != nil {
		log.Fatalf("debug preprocess: %v", err)
	}
	enc, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	fmt.Println(string(enc))
}
