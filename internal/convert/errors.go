package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cxbin-converter/internal/cxbin"
	"cxbin-converter/internal/export"
)

// IOError is a filesystem failure on an input or output path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// PartialBatchFailure reports that some jobs of a batch failed.
type PartialBatchFailure struct {
	Failed int
	Total  int
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%d of %d conversions failed", e.Failed, e.Total)
}

// Error kinds as they appear in reports.
const (
	KindDecode            = "decode"
	KindUnsupportedFormat = "unsupported_format"
	KindIO                = "io"
	KindPartialBatch      = "partial_batch"
	KindCanceled          = "canceled"
	KindInternal          = "internal"
)

// Kind classifies err. It returns "" for nil.
func Kind(err error) string {
	var (
		de  *cxbin.DecodeError
		ufe *export.UnsupportedFormatError
		ioe *IOError
		pe  *fs.PathError
		pbf *PartialBatchFailure
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de):
		return KindDecode
	case errors.As(err, &ufe):
		return KindUnsupportedFormat
	case errors.As(err, &ioe), errors.As(err, &pe):
		return KindIO
	case errors.As(err, &pbf):
		return KindPartialBatch
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindInternal
}

// asIOError turns a filesystem error into an *IOError for op; other errors
// are returned unchanged.
func asIOError(op string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return &IOError{Op: op, Path: pe.Path, Err: pe.Err}
	}
	var le *os.LinkError
	if errors.As(err, &le) {
		return &IOError{Op: op, Path: le.New, Err: le.Err}
	}
	return err
}
