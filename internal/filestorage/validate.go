// File: internal/filestorage/validate.go
package filestorage

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"launchpad_backend/internal/common"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the logo size limit when none is configured.
const DefaultMaxBytes = 2 << 20

// allowedTypes maps accepted MIME types to the extensions that may carry them.
var allowedTypes = map[string][]string{
	"image/jpeg":    {".jpg", ".jpeg"},
	"image/png":     {".png"},
	"image/webp":    {".webp"},
	"image/svg+xml": {".svg"},
}

var (
	svgScript       = regexp.MustCompile(`(?i)<\s*script`)
	svgEventHandler = regexp.MustCompile(`(?i)\son[a-z]+\s*=`)
	svgJSURL        = regexp.MustCompile(`(?i)(href|src)\s*=\s*["']?\s*javascript:`)
	svgForeign      = regexp.MustCompile(`(?i)<\s*foreignObject`)
)

// Image is a validated upload.
type Image struct {
	MIME      string
	Extension string
	Data      []byte
}

// ValidateImage checks a logo upload's name, size and content. The MIME type
// is detected from the bytes; the declared Content-Type is ignored.
func ValidateImage(filename string, data []byte, maxBytes int64) (*Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := validateFilename(filename); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, invalidFile("The file is empty.")
	}
	if int64(len(data)) > maxBytes {
		return nil, invalidFile("The file exceeds the maximum size of " + humanBytes(maxBytes) + ".")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	detected := mimetype.Detect(data)
	mime := detectedImageType(detected)
	exts, ok := allowedTypes[mime]
	if !ok {
		return nil, invalidFile("Only JPEG, PNG, WebP and SVG images are accepted.")
	}
	if !contains(exts, ext) {
		return nil, invalidFile("The file extension does not match its content.")
	}
	if mime == "image/svg+xml" {
		if err := validateSVG(data); err != nil {
			return nil, err
		}
	}
	return &Image{MIME: mime, Extension: exts[0], Data: data}, nil
}

// detectedImageType walks the detected type's parents so that e.g. SVG detected
// as XML-based text still resolves to image/svg+xml.
func detectedImageType(m *mimetype.MIME) string {
	for t := m; t != nil; t = t.Parent() {
		mime := strings.SplitN(t.String(), ";", 2)[0]
		if _, ok := allowedTypes[mime]; ok {
			return mime
		}
	}
	return ""
}

func validateFilename(name string) error {
	if name == "" || len(name) > 255 {
		return invalidFile("The file name is missing or too long.")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return invalidFile("The file name may not contain path segments.")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return invalidFile("The file name contains control characters.")
		}
	}
	base := strings.TrimPrefix(name, ".")
	if strings.Count(base, ".") != 1 {
		return invalidFile("The file name must have exactly one extension.")
	}
	return nil
}

func validateSVG(data []byte) error {
	lower := bytes.ToLower(data)
	if svgScript.Match(lower) || svgEventHandler.Match(lower) || svgJSURL.Match(lower) || svgForeign.Match(lower) {
		return invalidFile("SVG files may not contain scripts or event handlers.")
	}
	return nil
}

func invalidFile(msg string) error {
	return common.NewValidationAPIError(map[string]string{"File": msg})
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + " MB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + " KB"
	default:
		return strconv.FormatInt(n, 10) + " bytes"
	}
}
