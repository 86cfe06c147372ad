// Package placeholder renders synthetic camera frames: the no-signal
// image shown by the diagnostic server and fixture frames for the
// replay camera tests.
package placeholder

import (
	"image"
	"image/color"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// Create renders text centered on a solid background, optionally
// stamping the current time at the bottom right corner.
func Create(
	width, height int,
	backgroundColor, textColor color.Color,
	text string,
	timestamp bool,
) (image.Image, error) {
	dc := gg.NewContext(width, height)
	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	if font == nil {
		var err error
		font, err = truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, err
		}
	}

	size := float64(height) / 9
	if size < 12 {
		size = 12
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))

	dc.SetColor(textColor)
	dc.DrawStringAnchored(text, float64(width/2), float64(height/2), 0.5, 0.5)

	if timestamp {
		nowStr := time.Now().Format(time.DateTime)
		dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size / 3}))
		dc.DrawStringAnchored(nowStr, float64(width)-10, float64(height)-10, 1, 0)
	}

	return dc.Image(), nil
}
