package parser

import "io"

// Parser decodes a provider response body into a list of T
type Parser[T any] interface {
	Parse(body io.Reader) ([]T, error)
}
