package gptag

import (
	"image"
	"image/color"
)

// ToGray converts an image to 8-bit grayscale using the same luminance
// weights throughout the pipeline: (306R + 601G + 117B + 0x200) >> 10.
// Gray inputs are returned as-is; YCbCr inputs reuse their luma plane.
func ToGray(img image.Image) *image.Gray {
	switch src := img.(type) {
	case *image.Gray:
		return src
	case *image.YCbCr:
		return grayFromYCbCr(src)
	case *image.RGBA:
		return grayFromRGBA(src)
	}
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; take the high bytes.
			lum := (306*(r>>8) + 601*(g>>8) + 117*(b>>8) + 0x200) >> 10
			out.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return out
}

func grayFromYCbCr(src *image.YCbCr) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcOff := (y-src.Rect.Min.Y)*src.YStride + (bounds.Min.X - src.Rect.Min.X)
		dstOff := (y - bounds.Min.Y) * out.Stride
		copy(out.Pix[dstOff:dstOff+bounds.Dx()], src.Y[srcOff:srcOff+bounds.Dx()])
	}
	return out
}

func grayFromRGBA(src *image.RGBA) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcOff := src.PixOffset(bounds.Min.X, y)
		dstOff := (y - bounds.Min.Y) * out.Stride
		for x := 0; x < bounds.Dx(); x++ {
			p := src.Pix[srcOff+4*x : srcOff+4*x+3]
			lum := (306*uint32(p[0]) + 601*uint32(p[1]) + 117*uint32(p[2]) + 0x200) >> 10
			out.Pix[dstOff+x] = uint8(lum)
		}
	}
	return out
}

// SampleBilinear reads the image at fractional coordinates with bilinear
// interpolation, clamping to the image bounds.
func SampleBilinear(img *image.Gray, x, y float64) float64 {
	bounds := img.Bounds()
	fx := x - 0.5
	fy := y - 0.5
	x0 := int(fx)
	y0 := int(fy)
	if fx < 0 {
		x0 = -1
	}
	if fy < 0 {
		y0 = -1
	}
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	clampPix := func(px, py int) float64 {
		if px < bounds.Min.X {
			px = bounds.Min.X
		} else if px >= bounds.Max.X {
			px = bounds.Max.X - 1
		}
		if py < bounds.Min.Y {
			py = bounds.Min.Y
		} else if py >= bounds.Max.Y {
			py = bounds.Max.Y - 1
		}
		return float64(img.GrayAt(px, py).Y)
	}

	v00 := clampPix(x0, y0)
	v10 := clampPix(x0+1, y0)
	v01 := clampPix(x0, y0+1)
	v11 := clampPix(x0+1, y0+1)
	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*ty
}
