package raster

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load decodes the image at path, applying any EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return img, nil
}

// Save encodes img with the format implied by the extension of path,
// defaulting to PNG.
func Save(path string, img image.Image) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.PNG
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := imaging.Encode(f, img, format, imaging.JPEGQuality(92)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
