package cxbin

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by DecodeError; match them with errors.Is.
var (
	ErrTruncated          = errors.New("truncated data")
	ErrBadMagic           = errors.New("bad header signature")
	ErrUnsupportedVersion = errors.New("unsupported internal version")
	ErrBadLength          = errors.New("invalid length field")
	ErrIndexRange         = errors.New("index out of range")
	ErrCorrupt            = errors.New("corrupt compressed section")
)

// DecodeError reports a malformed container. Offset is the file offset of the
// field at fault; for problems inside a compressed section it is the offset
// of that section's payload and Reason names the position inside it.
type DecodeError struct {
	Offset  int64
	Section string
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("cxbin: %s section at offset %d: %s", e.Section, e.Offset, e.Reason)
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }
