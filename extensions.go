package sim

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// ContainerExt is the conventional extension for container files.
const ContainerExt = ".sim"

// OutputPath returns the conventional container path for an input file:
// the input path with ContainerExt appended.
func OutputPath(name string) string {
	return name + ContainerExt
}

// SourcePath derives the restore path for a container file. When name
// carries ContainerExt the extension is stripped; otherwise ".out" is
// appended and ok is false so callers can warn about the guess.
func SourcePath(name string) (path string, ok bool) {
	if HasContainerExtension(name) {
		return strings.TrimSuffix(name, filepath.Ext(name)), true
	}
	return name + ".out", false
}

// HasContainerExtension checks if filename has the container extension
func HasContainerExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ContainerExt)
}

// DetectContainer reports whether r starts with the container magic,
// consuming the sniffed bytes from r.
func DetectContainer(r io.Reader) (bool, error) {
	buf := make([]byte, len(containerMagic))
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return IsContainer(buf[:n]), nil
}

// IsContainer checks if data begins with a container header
func IsContainer(data []byte) bool {
	return len(data) >= len(containerMagic) &&
		bytes.Equal(data[:len(containerMagic)], []byte(containerMagic))
}
