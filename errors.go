package sim

import "errors"

var (
	// ErrUnsupportedAlgorithm reports an algorithm this build cannot handle,
	// either from configuration or from a container header.
	ErrUnsupportedAlgorithm = errors.New("sim: unsupported compression algorithm")

	// ErrInvalidLevel reports a compression level outside 1..9.
	ErrInvalidLevel = errors.New("sim: invalid compression level")

	// ErrUnsupportedIntegrity reports an unknown integrity kind.
	ErrUnsupportedIntegrity = errors.New("sim: unsupported integrity kind")

	// ErrFormat reports a malformed or unsupported container: bad magic,
	// unknown version, or declared lengths that disagree with the file.
	ErrFormat = errors.New("sim: invalid container format")

	// ErrCorruptStream reports a payload that does not decode to a valid
	// symbol stream. The container was structurally sound but its bits are
	// not trustworthy.
	ErrCorruptStream = errors.New("sim: corrupt compressed stream")

	// ErrIntegrityMismatch reports that the decoded bytes do not match the
	// digest recorded at compression time. Load still returns the decoded
	// bytes alongside this error so the caller can decide their fate.
	ErrIntegrityMismatch = errors.New("sim: integrity digest mismatch")

	// ErrCancelled reports a cooperative abort between chunks. It wraps the
	// context's own error, so errors.Is also matches context.Canceled or
	// context.DeadlineExceeded.
	ErrCancelled = errors.New("sim: operation cancelled")
)
