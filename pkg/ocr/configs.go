package ocr

import "github.com/otiai10/gosseract/v2"

// Config is a named tesseract parameter set: a page segmentation assumption
// plus an optional character whitelist. The set is static; Configs returns it
// in the order candidates are scored.
type Config struct {
	Name      string
	PSM       gosseract.PageSegMode
	Whitelist string
}

const (
	whitelistNumeric      = "0123456789.,% "
	whitelistAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789.,:%/- "
)

// DefaultConfig is the config used for debug passes and the raw-image
// fallback: assume a uniform block of text, no whitelist.
var DefaultConfig = Config{Name: "default", PSM: gosseract.PSM_SINGLE_BLOCK}

// Configs returns the full recognition profile table. Order matters: ties in
// the selector keep the earliest-seen candidate.
func Configs() []Config {
	return []Config{
		DefaultConfig,
		{Name: "single_column", PSM: gosseract.PSM_SINGLE_COLUMN},
		{Name: "auto_page", PSM: gosseract.PSM_AUTO},
		{Name: "sparse_text", PSM: gosseract.PSM_SPARSE_TEXT},
		{Name: "single_line", PSM: gosseract.PSM_RAW_LINE},
		{Name: "single_word", PSM: gosseract.PSM_SINGLE_WORD},
		{Name: "vertical_text", PSM: gosseract.PSM_SINGLE_BLOCK_VERT_TEXT},
		{Name: "uniform_block", PSM: gosseract.PSM_SINGLE_LINE},
		{Name: "numbers_only", PSM: gosseract.PSM_SINGLE_BLOCK, Whitelist: whitelistNumeric},
		{Name: "alphanumeric", PSM: gosseract.PSM_SINGLE_BLOCK, Whitelist: whitelistAlphanumeric},
	}
}
