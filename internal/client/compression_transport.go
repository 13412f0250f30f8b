package client

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// decoderFunc wraps a compressed body in a decompressing reader.
type decoderFunc func(body io.Reader) (io.ReadCloser, error)

// decoders lists the encodings advertised in Accept-Encoding, keyed by Content-Encoding token.
var decoders = map[string]decoderFunc{
	"gzip": func(body io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(body)
	},
	"br": func(body io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(body)), nil
	},
	"zstd": func(body io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
}

const acceptEncoding = "gzip, br, zstd"

// compressionTransport advertises gzip, brotli and zstd and transparently
// decodes the response. Watch pages are large, so this matters on slow links.
type compressionTransport struct {
	next http.RoundTripper
}

func newCompressionTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &compressionTransport{next: next}
}

func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		// RoundTrippers must not mutate the caller's request
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	encodings, ok := parseEncodings(resp.Header.Get("Content-Encoding"))
	if !ok || len(encodings) == 0 {
		return resp, nil
	}

	body, err := decodeChain(resp.Body, encodings)
	if err != nil {
		return nil, err
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true

	return resp, nil
}

// decodeChain undoes encodings in reverse order of application. On error
// every reader opened so far and the raw body are closed.
func decodeChain(raw io.ReadCloser, encodings []string) (io.ReadCloser, error) {
	body := &decodedBody{raw: raw}
	var reader io.Reader = raw
	for i := len(encodings) - 1; i >= 0; i-- {
		rc, err := decoders[encodings[i]](reader)
		if err != nil {
			body.Close()
			return nil, err
		}
		body.layers = append(body.layers, rc)
		reader = rc
	}
	body.Reader = reader
	return body, nil
}

// decodedBody reads from the last decoder in the chain. Close walks the
// layers back towards the network and closes the raw body last.
type decodedBody struct {
	io.Reader
	layers []io.ReadCloser
	raw    io.ReadCloser
}

func (b *decodedBody) Close() error {
	var first error
	for i := len(b.layers) - 1; i >= 0; i-- {
		if err := b.layers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := b.raw.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// parseEncodings splits a Content-Encoding header into lowercased tokens in
// the order they were applied, dropping identity. ok is false when any token
// has no decoder, in which case the body must be left alone.
func parseEncodings(header string) (encodings []string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" || token == "identity" {
			continue
		}
		if _, known := decoders[token]; !known {
			return nil, false
		}
		encodings = append(encodings, token)
	}
	return encodings, true
}
