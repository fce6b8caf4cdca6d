package dta

import "errors"

var (
	// ErrUnsupportedVersion indicates a header version code outside the
	// supported set {104, 105, 108, 113, 114, 115, 117}.
	ErrUnsupportedVersion = errors.New("unsupported dta format version")
	// ErrSequence indicates an out-of-order or repeated operation, such
	// as requesting value labels before the data block has been read.
	ErrSequence = errors.New("operation out of sequence")
	// ErrStringTooLong indicates a string column exceeding the 244-byte
	// fixed-width string limit.
	ErrStringTooLong = errors.New("string column exceeds 244 bytes")
)
