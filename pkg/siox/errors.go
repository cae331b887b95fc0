package siox

import "errors"

var (
	// ErrInsufficientBackground means the background signature came out empty;
	// mark more pixels as certain background and retry.
	ErrInsufficientBackground = errors.New("siox: background signature is empty")

	// ErrMissingForegroundSignature means unknown pixels had to be classified
	// without any foreground signature.
	ErrMissingForegroundSignature = errors.New("siox: foreground signature does not exist")

	// ErrNotSegmented is returned by operations that need a previous
	// successful segmentation.
	ErrNotSegmented = errors.New("siox: no segmentation yet")

	ErrSizeMismatch      = errors.New("siox: buffer size does not match image")
	ErrInvalidDimensions = errors.New("siox: invalid image dimensions")
	ErrUnknownBrushMode  = errors.New("siox: unknown brush mode")
)
