package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-water/common"
)

// loaderBackend decodes one image file format into RGBA staging data.
type loaderBackend interface {
	// Decode reads an encoded image. A non-zero size resamples it to size x size.
	Decode(r io.Reader, size int) (common.TextureStagingData, error)
}

// imageBackend decodes every format registered with the image package:
// PNG and JPEG from the standard library, BMP from golang.org/x/image.
type imageBackend struct{}

func (imageBackend) Decode(r io.Reader, size int) (common.TextureStagingData, error) {
	return common.DecodeImage(r, size)
}

var backends = map[string]loaderBackend{
	".png":  imageBackend{},
	".jpg":  imageBackend{},
	".jpeg": imageBackend{},
	".bmp":  imageBackend{},
}

// resolveBackend picks the decoder by file extension.
func resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if b, ok := backends[ext]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
