// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error taxonomy for extraction runs. Only ErrDocumentOpen on the original
// source and ErrInvalidConfig abort a run; the rest are recorded per group.
var (
	ErrDocumentOpen      = errors.New("document open failure")
	ErrNoMarkers         = errors.New("no markers found")
	ErrDuplication       = errors.New("duplication failure")
	ErrWorker            = errors.New("worker failure")
	ErrImplausibleOutput = errors.New("implausible output size")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidRange      = errors.New("invalid range")
	ErrIncomparable      = errors.New("incomparable positions")
	ErrLocked            = errors.New("document locked by another accessor")
	ErrCanceled          = errors.New("run canceled")
)
