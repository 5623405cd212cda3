package cxbin

// Layout constants.
const (
	// PreambleSize is the fixed header: head code plus 12 reserved bytes.
	PreambleSize = 16

	// LegacyHeadCode selects the single-block layout.
	LegacyHeadCode = 1

	// DefaultHeadCode is written by Encode for the current layout.
	DefaultHeadCode = 0

	// maxHeadCode bounds the head codes accepted as a valid signature.
	maxHeadCode = 0xFF

	// maxInflateRatio is the largest expansion zlib can produce; declared
	// sizes beyond it cannot be honest.
	maxInflateRatio = 1032
)

// Internal version numbers following the geometry section.
const (
	VersionNone      = -1 // geometry only, the file ends after the mesh
	VersionPlain     = 0
	VersionMaterials = 1
)

// Info describes how a container was framed.
type Info struct {
	HeadCode          int32
	Version           int
	Legacy            bool
	CompressedBytes   int64 // geometry section (or the single legacy block)
	UncompressedBytes int64
}
