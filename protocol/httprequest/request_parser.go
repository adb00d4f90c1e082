package httprequest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/Returtless/http-server/model"
)

const (
	DefaultMaxHeaderBytes = 1 << 20
	DefaultMaxBodyBytes   = 10 << 20

	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	FormURLEncoded      = "application/x-www-form-urlencoded"
)

var (
	// ErrMalformedRequest means no Request could be built from the stream.
	ErrMalformedRequest = errors.New("malformed-request")

	// ErrMalformedBody means the declared form body was skipped. It is
	// never returned by Parse, only passed to the body error hook.
	ErrMalformedBody = errors.New("malformed-body")

	errHeaderTooLarge = errors.New("header block too large")
)

// Parser turns the bytes of one HTTP/1.x request into a model.Request.
// A Parser has no per-request state and may be shared.
type Parser struct {
	maxHeaderBytes int64
	maxBodyBytes   int64
	onBodyError    func(error)
}

type ParserOption func(*Parser)

// New returns a Parser with default limits, adjusted by parserOptions.
func New(parserOptions ...ParserOption) *Parser {

	p := &Parser{
		maxHeaderBytes: DefaultMaxHeaderBytes,
		maxBodyBytes:   DefaultMaxBodyBytes,
		onBodyError:    func(error) {},
	}

	for _, parserOption := range parserOptions {
		parserOption(p)
	}

	return p
}

// WithMaxHeaderBytes caps the request line plus header block.
func WithMaxHeaderBytes(n int64) ParserOption {

	return func(p *Parser) {
		if n > 0 {
			p.maxHeaderBytes = n
		}
	}
}

// WithMaxBodyBytes caps the form body that will be read and decoded.
func WithMaxBodyBytes(n int64) ParserOption {

	return func(p *Parser) {
		if n > 0 {
			p.maxBodyBytes = n
		}
	}
}

// WithBodyErrorHook registers a callback for non-fatal body errors.
func WithBodyErrorHook(hook func(error)) ParserOption {

	return func(p *Parser) {
		if hook != nil {
			p.onBodyError = hook
		}
	}
}

// Parse reads one request from r. It consumes exactly the header block and,
// for form-urlencoded requests, exactly Content-Length bytes of body.
func (p *Parser) Parse(r *bufio.Reader) (*model.Request, error) {

	budget := p.maxHeaderBytes

	requestLine, err := readLine(r, &budget)
	if err != nil {
		return nil, readFailure("reading request line", err)
	}

	parts := strings.Split(requestLine, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: request line has %d tokens", ErrMalformedRequest, len(parts))
	}

	method, target, protocol := parts[0], parts[1], parts[2]
	if method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrMalformedRequest)
	}

	uri, err := url.ParseRequestURI(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if uri.Path == "" {
		return nil, fmt.Errorf("%w: empty path in %q", ErrMalformedRequest, target)
	}

	headers, err := readHeaders(r, &budget)
	if err != nil {
		return nil, err
	}

	postParams, err := p.readFormBody(r, headers)
	if err != nil {
		return nil, err
	}

	return model.NewRequest(method, uri.Path, protocol, target, headers, ParseParams(uri.RawQuery), postParams, r), nil
}

// readHeaders reads header lines up to the blank line. Duplicate names keep
// the last value; names are stored exactly as received.
func readHeaders(r *bufio.Reader, budget *int64) (map[string]string, error) {

	headers := make(map[string]string)

	for {
		line, err := readLine(r, budget)
		if err != nil {
			return nil, readFailure("header block not terminated", err)
		}
		if line == "" {
			return headers, nil
		}

		name, value, found := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("%w: invalid header line %q", ErrMalformedRequest, line)
		}

		headers[name] = strings.TrimSpace(value)
	}
}

// readFormBody reads and decodes a form-urlencoded body. An unusable
// Content-Length is reported to the body error hook and the body is skipped.
func (p *Parser) readFormBody(r *bufio.Reader, headers map[string]string) ([]model.Param, error) {

	contentLength, hasLength := headers[HeaderContentLength]
	contentType, hasType := headers[HeaderContentType]
	if !hasLength || !hasType || strings.TrimSpace(contentType) != FormURLEncoded {
		return nil, nil
	}

	digits := strings.TrimSpace(contentLength)
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		p.onBodyError(fmt.Errorf("%w: invalid %s %q", ErrMalformedBody, HeaderContentLength, contentLength))
		return nil, nil
	}

	length, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		p.onBodyError(fmt.Errorf("%w: invalid %s %q", ErrMalformedBody, HeaderContentLength, contentLength))
		return nil, nil
	}
	if length > p.maxBodyBytes {
		p.onBodyError(fmt.Errorf("%w: %s %d exceeds limit %d", ErrMalformedBody, HeaderContentLength, length, p.maxBodyBytes))
		return nil, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, readFailure("body shorter than "+HeaderContentLength, err)
	}

	return ParseParams(string(body)), nil
}

// readFailure classifies a reader error. A stream that ends early or an
// oversized header block is a malformed request; anything else is an I/O
// failure and keeps the original error reachable.
func readFailure(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, errHeaderTooLarge) {
		return fmt.Errorf("%w: %s: %v", ErrMalformedRequest, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// readLine returns the next line without its terminator, charging its
// length against budget.
func readLine(r *bufio.Reader, budget *int64) (string, error) {

	var line []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}

		*budget -= int64(len(chunk))
		if !isPrefix {
			*budget -= 2
		}
		if *budget < 0 {
			return "", errHeaderTooLarge
		}

		line = append(line, chunk...)
		if !isPrefix {
			return string(line), nil
		}
	}
}

// ParseParams decodes a query string or form body into ordered pairs.
// Pairs are split on '&' and then on the first '='; names and values use
// form decoding, so '+' becomes a space. Text that is not valid percent
// encoding is kept as sent.
func ParseParams(s string) []model.Param {

	var params []model.Param
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		params = append(params, model.Param{Name: decode(name), Value: decode(value)})
	}

	return params
}

func decode(s string) string {

	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}

	return s
}
