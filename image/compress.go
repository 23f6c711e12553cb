package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// ProfileMaxDimension bounds avatar uploads.
	ProfileMaxDimension = 256
	// PhotoMaxDimension bounds pet photos sent to the model or stored inline.
	PhotoMaxDimension = 1024

	jpegQuality = 85
)

// Orientation returns the EXIF orientation tag of data, 1 when absent.
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient maps a destination pixel back to its source pixel for each EXIF orientation.
// Orientations 5 through 8 swap width and height.
func orient(img image.Image, orientation int) image.Image {
	if orientation == 1 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}

	out := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var sx, sy int
			switch orientation {
			case 2:
				sx, sy = w-1-x, y
			case 3:
				sx, sy = w-1-x, h-1-y
			case 4:
				sx, sy = x, h-1-y
			case 5:
				sx, sy = y, x
			case 6:
				sx, sy = y, h-1-x
			case 7:
				sx, sy = w-1-y, h-1-x
			case 8:
				sx, sy = w-1-y, x
			}
			out.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return out
}

// fit scales w x h down to fit within maxDimension, keeping the aspect ratio.
func fit(w, h, maxDimension int) (int, int) {
	switch {
	case w <= maxDimension && h <= maxDimension:
		return w, h
	case w >= h:
		return maxDimension, max(1, h*maxDimension/w)
	default:
		return max(1, w*maxDimension/h), maxDimension
	}
}

// Normalize decodes an uploaded photo, applies its EXIF orientation and scales it to fit
// within maxDimension. Photos that need neither are returned untouched with their own
// mime type; everything else is re-encoded as JPEG.
func Normalize(data []byte, maxDimension int) ([]byte, string, error) {
	mimeType := mimetype.Detect(data).String()
	orientation := Orientation(data)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	img = orient(img, orientation)

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if orientation == 1 && w <= maxDimension && h <= maxDimension {
		return data, mimeType, nil
	}

	nw, nh := fit(w, h, maxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	log.WithFields(log.Fields{
		"format":      format,
		"orientation": orientation,
		"from":        fmt.Sprintf("%dx%d", w, h),
		"to":          fmt.Sprintf("%dx%d", nw, nh),
		"bytes_in":    len(data),
		"bytes_out":   buf.Len(),
	}).Debug("Normalized image")

	return buf.Bytes(), "image/jpeg", nil
}
