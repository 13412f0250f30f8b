package parser

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewUTF8Reader_AlreadyUTF8(t *testing.T) {
	t.Parallel()
	input := []byte("<html><body>字幕 - UTF-8: ☺</body></html>")
	reader, err := NewUTF8Reader(bytes.NewReader(input), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("NewUTF8Reader failed: %v", err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read from UTF-8 reader: %v", err)
	}

	if !bytes.Equal(output, input) {
		t.Errorf("Expected UTF-8 content to pass through unchanged, got %q", output)
	}
}

func TestNewUTF8Reader_ContentTypeHeader(t *testing.T) {
	t.Parallel()
	// é = 0xE9 in ISO-8859-1, declared only through the header
	input := []byte("<html><body>Caf" + string([]byte{0xE9}) + "</body></html>")

	reader, err := NewUTF8Reader(bytes.NewReader(input), "text/html; charset=ISO-8859-1")
	if err != nil {
		t.Fatalf("NewUTF8Reader failed: %v", err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if !strings.Contains(string(output), "Café") {
		t.Errorf("Expected 'Café' in output, got: %s", output)
	}
}

func TestXMLCharsetReader_UnknownLabel(t *testing.T) {
	t.Parallel()
	if _, err := xmlCharsetReader("no-such-charset", strings.NewReader("x")); err == nil {
		t.Error("Expected error for unknown charset label")
	}
}
