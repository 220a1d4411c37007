// Package images turns screenshot blobs into model-ready payloads and finds
// screenshots on disk.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMIMEType is used when neither a declared type nor the file name tells us one
const DefaultMIMEType = "image/jpeg"

// Source is an image blob with its declared media type. Open is called once per encode.
type Source struct {
	Name     string
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

// FromFile returns a Source backed by a file on disk. The file is opened lazily.
func FromFile(path string) Source {
	return Source{
		Name:     filepath.Base(path),
		MIMEType: mimeForExt(strings.ToLower(filepath.Ext(path))),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// FromBytes returns a Source over an in-memory blob
func FromBytes(name, mimeType string, data []byte) Source {
	return Source{
		Name:     name,
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromReader wraps an already-open stream. The reader can only be encoded once.
func FromReader(name, mimeType string, r io.Reader) Source {
	return Source{
		Name:     name,
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// Encoded is a transport-ready image
type Encoded struct {
	Name     string
	MIMEType string
	// Base64 is the standard base64 encoding of Data
	Base64 string
	Data   []byte
}

// DataURI renders the image as a data: URI
func (e Encoded) DataURI() string {
	return "data:" + e.MIMEType + ";base64," + e.Base64
}

// ReadError reports an image whose bytes could not be consumed
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read image %q: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Encode reads the whole blob and returns its base64 form and normalised media type
func Encode(src Source) (Encoded, error) {
	if src.Open == nil {
		return Encoded{}, &ReadError{Name: src.Name, Err: fmt.Errorf("no data source")}
	}

	rc, err := src.Open()
	if err != nil {
		return Encoded{}, &ReadError{Name: src.Name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Encoded{}, &ReadError{Name: src.Name, Err: err}
	}

	return Encoded{
		Name:     src.Name,
		MIMEType: NormalizeMIMEType(src.MIMEType, src.Name),
		Base64:   base64.StdEncoding.EncodeToString(data),
		Data:     data,
	}, nil
}

// EncodeAll encodes sources in order, stopping at the first failure
func EncodeAll(sources []Source) ([]Encoded, error) {
	encoded := make([]Encoded, 0, len(sources))
	for _, src := range sources {
		e, err := Encode(src)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, e)
	}
	return encoded, nil
}

// NormalizeMIMEType lowercases the declared type and drops parameters. An empty or
// unparsable declaration falls back to the extension of name, then DefaultMIMEType.
func NormalizeMIMEType(declared, name string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mimeForExt(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return DefaultMIMEType
}

func mimeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".heic":
		return "image/heic"
	default:
		return ""
	}
}
