package osmpbf

import "errors"

// Fatal error kinds from spec §7's error taxonomy that originate in the
// framing/decode layer. BuildIndex, ReadHeaderBlock and ReadPrimitiveBlock
// wrap blob decode errors with the blob's file offset via
// fmt.Errorf("...: %w", ...).
var (
	ErrTruncatedInput     = errors.New("osmpbf: truncated input")
	ErrCorruptBlob        = errors.New("osmpbf: corrupt blob")
	ErrUnsupportedFeature = errors.New("osmpbf: unsupported feature")
)
