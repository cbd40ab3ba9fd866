package render

import (
	"gocv.io/x/gocv"
	"image"
	"strings"
)

// StatusBar draws lines of text on a dark band across the top of the image
func StatusBar(img *gocv.Mat, text string, font Font) {

	lines := strings.Split(text, "\n")
	lineHeight := 0

	for _, l := range lines {
		sz := gocv.GetTextSize(l, font.Face, font.Scale, font.Thickness)
		if sz.Y > lineHeight {
			lineHeight = sz.Y
		}
	}

	step := lineHeight + font.TopPad + font.BottomPad
	band := image.Rect(0, 0, img.Cols(), step*len(lines))
	gocv.Rectangle(img, band, Black, -1)

	for i, l := range lines {
		pos := image.Pt(font.LeftPad, i*step+font.TopPad+lineHeight)
		gocv.PutTextWithParams(img, l, pos, font.Face, font.Scale, font.Color,
			font.Thickness, font.LineType, false)
	}
}
