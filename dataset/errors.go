package dataset

import "fmt"

// ErrMissingInput indicates that a required input file does not exist.
type ErrMissingInput struct {
	Path string
}

func (e *ErrMissingInput) Error() string {
	return fmt.Sprintf("missing input file: %s", e.Path)
}

// ErrCorruptDataset indicates that a vector file's header-declared geometry
// does not match its actual size.
type ErrCorruptDataset struct {
	Path     string
	Declared int64
	Actual   int64
}

func (e *ErrCorruptDataset) Error() string {
	return fmt.Sprintf("corrupt dataset %s: header declares %d bytes, file has %d", e.Path, e.Declared, e.Actual)
}

// ErrCorruptGroundTruth indicates that a ground-truth file's size is
// inconsistent with its declared query count and K.
type ErrCorruptGroundTruth struct {
	Path     string
	Declared int64
	Actual   int64
}

func (e *ErrCorruptGroundTruth) Error() string {
	return fmt.Sprintf("corrupt ground truth %s: header declares %d bytes, file has %d", e.Path, e.Declared, e.Actual)
}
