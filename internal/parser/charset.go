package parser

import (
	"io"

	"golang.org/x/net/html/charset"
)

// NewUTF8Reader wraps an io.Reader with character encoding detection and conversion to UTF-8.
// contentType is the Content-Type header of the response and may be empty, in which case the
// encoding is sniffed from <meta> tags, XML declarations, byte order marks, or heuristics.
func NewUTF8Reader(body io.Reader, contentType string) (io.Reader, error) {
	return charset.NewReader(body, contentType)
}

// xmlCharsetReader is plugged into encoding/xml so timed text declared as
// e.g. ISO-8859-1 is decoded instead of rejected.
func xmlCharsetReader(label string, input io.Reader) (io.Reader, error) {
	return charset.NewReaderLabel(label, input)
}
