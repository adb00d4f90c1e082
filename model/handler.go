package model

import (
	"bufio"
)

// Handler writes a complete raw HTTP response for req onto out.
// A non-nil error signals that the response could not be produced.
type Handler interface {
	Handle(req *Request, out *bufio.Writer) error
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(req *Request, out *bufio.Writer) error

func (f HandlerFunc) Handle(req *Request, out *bufio.Writer) error {
	return f(req, out)
}
