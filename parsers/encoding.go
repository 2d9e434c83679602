package parsers

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported CSV encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-bom"
	EncodingWindows1252 = "windows-1252"
)

func lookup(name string) (encoding.Encoding, error) {
	switch name {
	case "", EncodingUTF8:
		return unicode.UTF8, nil
	case EncodingUTF8BOM:
		return unicode.UTF8BOM, nil
	case EncodingWindows1252:
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("codificación no soportada: %s", name)
}

// NewDecodingReader converts r from the named encoding to UTF-8.
// UTF-8 input is accepted with or without a BOM whatever the setting.
func NewDecodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == charmap.Windows1252 {
		return transform.NewReader(r, enc.NewDecoder()), nil
	}
	return SkipBOM(r), nil
}

// NewEncodingWriter converts UTF-8 written to the returned writer into the named encoding.
// Close flushes the transformer; it does not close w.
func NewEncodingWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}
