package ocr

import "errors"

// ErrImageDecode is returned when the input bytes are not a decodable image.
var ErrImageDecode = errors.New("image decode failed")

// ErrEngineUnavailable is returned when the recognition engine itself cannot
// be invoked (missing tesseract binary or language data).
var ErrEngineUnavailable = errors.New("recognition engine unavailable")
