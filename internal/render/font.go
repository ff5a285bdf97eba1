package render

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	labelFontOnce sync.Once
	labelFont     *opentype.Font
	labelFontErr  error
)

// labelFace returns a fresh face of the embedded Go Regular font. Faces keep
// glyph caches and are not safe to share between goroutines, so each image
// gets its own.
func labelFace(size float64) (font.Face, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = opentype.Parse(goregular.TTF)
	})
	if labelFontErr != nil {
		return nil, labelFontErr
	}
	return opentype.NewFace(labelFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
