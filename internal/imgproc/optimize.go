// Package imgproc normalizes uploaded face photos before they are sent to a
// generation provider: oversized uploads are cropped to a portrait framing
// around the face region and downscaled to a bounded edge length, which keeps
// provider payloads small without visibly degrading conditioning quality.
package imgproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

const (
	// maxSourceEdge bounds the longest edge of the optimized upload.
	maxSourceEdge = 1024

	// portraitAspectW/H is the 3:4 framing used for the face-region crop.
	portraitAspectW = 3
	portraitAspectH = 4

	jpegQuality = 90
)

// Optimize decodes, crops, downscales, and re-encodes an uploaded photo.
// It returns the optimized bytes and their mime type. PNG, JPEG, GIF, and
// WebP uploads are accepted; output is always JPEG.
func Optimize(data []byte, mimeType string) ([]byte, string, error) {
	img, err := decode(data, mimeType)
	if err != nil {
		return nil, "", err
	}

	img = cropFaceRegion(img)

	bounds := img.Bounds()
	if w, h := bounds.Dx(), bounds.Dy(); w > maxSourceEdge || h > maxSourceEdge {
		if w >= h {
			img = resize.Resize(maxSourceEdge, 0, img, resize.Lanczos3)
		} else {
			img = resize.Resize(0, maxSourceEdge, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("imgproc: encode: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func decode(data []byte, mimeType string) (image.Image, error) {
	if strings.EqualFold(strings.TrimSpace(mimeType), "image/webp") {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("imgproc: decode webp: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Content sniffing catches webp uploads with a wrong mime type.
		if webpImg, webpErr := webp.Decode(bytes.NewReader(data)); webpErr == nil {
			return webpImg, nil
		}
		return nil, fmt.Errorf("imgproc: decode: %w", err)
	}
	return img, nil
}

// cropFaceRegion crops to a 3:4 portrait window anchored to the top-center of
// the frame, where faces sit in the overwhelming majority of selfie-style
// uploads. Images already at the target aspect pass through.
func cropFaceRegion(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	switch {
	case w*portraitAspectH > h*portraitAspectW:
		// Wider than 3:4: trim the sides.
		cropW := h * portraitAspectW / portraitAspectH
		if cropW < 1 {
			cropW = 1
		}
		return imaging.CropAnchor(img, cropW, h, imaging.Top)
	case w*portraitAspectH < h*portraitAspectW:
		// Taller than 3:4: keep the top of the frame.
		cropH := w * portraitAspectH / portraitAspectW
		if cropH < 1 {
			cropH = 1
		}
		return imaging.CropAnchor(img, w, cropH, imaging.Top)
	default:
		return img
	}
}

// EncodeJPEG is a low-level helper used by tests to produce fixture images.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
