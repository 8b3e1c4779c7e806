package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wax-intake/internal/domain/submission"

	"github.com/h2non/bimg"
)

const jpegQuality = 80

// Format describes the canonical delivery encoding for one detected
// input type.
type Format struct {
	Type bimg.ImageType
	Ext  string
	Mime string
}

// TargetFormat maps a sniffed MIME type to the canonical output
// format: PNG stays PNG, everything else in the allow-list becomes
// JPEG. ok is false for types normalization does not handle.
func TargetFormat(detectedMime string) (Format, bool) {
	switch detectedMime {
	case "image/png":
		return Format{Type: bimg.PNG, Ext: ".png", Mime: "image/png"}, true
	case "image/jpeg", "image/webp", "image/heic", "image/heif":
		return Format{Type: bimg.JPEG, Ext: ".jpg", Mime: "image/jpeg"}, true
	default:
		return Format{}, false
	}
}

// DerivedName swaps the extension of a client-supplied name for the
// canonical one. Only the base name is kept; directories are
// stripped.
func DerivedName(originalName, ext string) string {
	base := filepath.Base(originalName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// Normalize re-encodes the attachment into its canonical format next
// to the input file, deletes the input, and returns the updated
// attachment with derived filename and verified MIME type. On any
// codec failure the input file is left for the caller to discard.
func Normalize(att submission.Attachment, detectedMime string) (submission.Attachment, error) {
	format, ok := TargetFormat(detectedMime)
	if !ok {
		return att, fmt.Errorf("unsupported normalization input %s", detectedMime)
	}

	buf, err := bimg.Read(att.Path)
	if err != nil {
		return att, fmt.Errorf("read image: %w", err)
	}

	options := bimg.Options{Type: format.Type}
	if format.Type == bimg.PNG {
		options.Compression = 9
	} else {
		options.Quality = jpegQuality
	}

	out, err := bimg.NewImage(buf).Process(options)
	if err != nil {
		return att, fmt.Errorf("re-encode image: %w", err)
	}

	return replaceOriginal(att, out, format)
}

// replaceOriginal writes the re-encoded bytes next to the input,
// deletes the input, and rewrites the attachment fields for the
// canonical format. It never leaves two files behind: if the input
// cannot be removed, the freshly written output is deleted again,
// since callers only track att.Path.
func replaceOriginal(att submission.Attachment, out []byte, format Format) (submission.Attachment, error) {
	dir := filepath.Dir(att.Path)
	stem := strings.TrimSuffix(filepath.Base(att.Path), filepath.Ext(att.Path))
	outName := stem + "-compressed" + format.Ext
	outPath := filepath.Join(dir, outName)

	if err := bimg.Write(outPath, out); err != nil {
		return att, fmt.Errorf("write normalized image: %w", err)
	}

	if err := os.Remove(att.Path); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(outPath)
		return att, fmt.Errorf("remove original: %w", err)
	}

	att.Path = outPath
	att.FileName = outName
	att.OriginalName = DerivedName(att.OriginalName, format.Ext)
	att.MimeType = format.Mime
	att.SizeBytes = int64(len(out))
	return att, nil
}
