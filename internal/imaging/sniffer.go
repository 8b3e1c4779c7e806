package imaging

import (
	"fmt"

	wax_errors "wax-intake/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
)

// allowedTypes is the raster-image allow-list. Declared content types
// are attacker controlled; only the sniffed byte content counts.
var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

// Sniff classifies the file at path by its byte content and returns
// the verified MIME type. Unrecognized or disallowed content returns
// ErrUnsupportedFileType; the caller must discard the temp file.
func Sniff(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", wax_errors.ErrUnsupportedFileType, err)
	}
	detected := mtype.String()
	if _, ok := allowedTypes[detected]; !ok {
		return "", fmt.Errorf("%w: got %s", wax_errors.ErrUnsupportedFileType, detected)
	}
	return detected, nil
}
