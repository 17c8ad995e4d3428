package geom

import "errors"

var (
	ErrEmptyShape     = errors.New("geom: shape has no boxes")
	ErrNegativeExtent = errors.New("geom: box extent is negative")
)
