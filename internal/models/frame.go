package models

import (
	"image"
	"image/color"
)

// Frame is a decoded still image with packed RGB pixels, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// FrameFromImage packs any image into an RGB frame. Alpha is dropped.
func FrameFromImage(img image.Image) Frame {
	bounds := img.Bounds()
	frame := Frame{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    make([]byte, 0, bounds.Dx()*bounds.Dy()*3),
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			frame.Pix = append(frame.Pix, c.R, c.G, c.B)
		}
	}
	return frame
}

// RGBA converts the frame into an opaque *image.RGBA.
func (f Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+2 < len(f.Pix) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// Empty reports whether the frame lacks pixels for its declared size.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height*3
}
