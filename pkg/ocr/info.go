package ocr

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// codecs for DecodeConfig format detection
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageInfo is decoded metadata about an image file.
type ImageInfo struct {
	Format        string  `json:"format"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FileSizeBytes int     `json:"file_size_bytes"`
	FileSizeMB    float64 `json:"file_size_mb"`
}

// Info inspects the image header without decoding pixel data.
func Info(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return ImageInfo{
		Format:        strings.ToUpper(format),
		Width:         cfg.Width,
		Height:        cfg.Height,
		FileSizeBytes: len(data),
		FileSizeMB:    float64(len(data)) / (1024 * 1024),
	}, nil
}

// Preview renders a human-readable summary of an image file: metadata plus
// the OCR transcription, truncated to the first previewLines lines.
func (p *Pipeline) Preview(data []byte, filename string) string {
	const previewLines = 20
	var b strings.Builder
	fmt.Fprintf(&b, "Image File: %s\n", filename)
	info, err := Info(data)
	if err != nil {
		fmt.Fprintf(&b, "Error: %v\n", err)
		return b.String()
	}
	fmt.Fprintf(&b, "Format: %s\n", info.Format)
	fmt.Fprintf(&b, "Dimensions: %d x %d pixels\n", info.Width, info.Height)
	fmt.Fprintf(&b, "Size: %.2f MB\n\n", info.FileSizeMB)

	verdict, err := p.ExtractText(data)
	if err != nil || verdict.Text == "" || verdict.Method == MethodFailed {
		b.WriteString("No text detected in image\n")
		return b.String()
	}
	b.WriteString("Extracted Text (OCR):\n")
	lines := strings.Split(verdict.Text, "\n")
	shown := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if shown == previewLines {
			fmt.Fprintf(&b, "... and %d more lines\n", len(lines)-previewLines)
			break
		}
		b.WriteString(strings.TrimSpace(line))
		b.WriteByte('\n')
		shown++
	}
	return b.String()
}

// VectorStoreText formats image content for document indexing: file metadata
// followed by the transcription, or an explicit no-text marker so the index
// still learns the file exists.
func (p *Pipeline) VectorStoreText(data []byte, filename string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", filename)
	if info, err := Info(data); err == nil {
		fmt.Fprintf(&b, "Type: Image File (%s)\n", info.Format)
		fmt.Fprintf(&b, "Dimensions: %d x %d pixels\n", info.Width, info.Height)
	} else {
		b.WriteString("Type: Image File\n")
	}
	b.WriteString("\nImage Content Analysis:\n")
	verdict, err := p.ExtractText(data)
	if err == nil && verdict.Text != "" && verdict.Method != MethodFailed {
		b.WriteString("Extracted Text Content:\n")
		b.WriteString(verdict.Text)
		b.WriteByte('\n')
	} else {
		b.WriteString("This is an image file with no detectable text content.\n")
		b.WriteString("The image may contain visual information such as charts, graphs, photos, or diagrams.\n")
	}
	return b.String()
}

// IsImageFile reports whether the filename has a known image extension.
func IsImageFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp":
		return true
	}
	return false
}
