package model

import (
	"io"
)

// Param is a single name/value pair decoded from a query string or a
// form-urlencoded body.
type Param struct {
	Name  string
	Value string
}

// Request is a parsed HTTP request. It is built once per connection and
// is read-only afterwards.
type Request struct {
	method      string
	path        string
	protocol    string
	requestURI  string
	headers     map[string]string
	queryParams []Param
	postParams  []Param
	in          io.Reader
}

// NewRequest assembles a Request. headers, queryParams and postParams are
// owned by the returned value and must not be modified by the caller.
func NewRequest(method, path, protocol, requestURI string, headers map[string]string, queryParams, postParams []Param, in io.Reader) *Request {

	if headers == nil {
		headers = make(map[string]string)
	}

	return &Request{
		method:      method,
		path:        path,
		protocol:    protocol,
		requestURI:  requestURI,
		headers:     headers,
		queryParams: queryParams,
		postParams:  postParams,
		in:          in,
	}
}

func (req *Request) Method() string     { return req.method }
func (req *Request) Path() string       { return req.path }
func (req *Request) Protocol() string   { return req.protocol }
func (req *Request) RequestURI() string { return req.requestURI }

// In returns the connection's input stream, positioned just past the
// header block and any consumed body.
func (req *Request) In() io.Reader { return req.in }

// Header looks a header up by its exact name as received.
func (req *Request) Header(name string) (string, bool) {

	v, ok := req.headers[name]
	return v, ok
}

// Headers returns a copy of the header map.
func (req *Request) Headers() map[string]string {

	headers := make(map[string]string, len(req.headers))
	for k, v := range req.headers {
		headers[k] = v
	}

	return headers
}

// QueryParams returns the query pairs in the order they were sent.
func (req *Request) QueryParams() []Param {
	return copyParams(req.queryParams)
}

// QueryParam returns the first value sent for name.
func (req *Request) QueryParam(name string) (string, bool) {
	return firstValue(req.queryParams, name)
}

func (req *Request) QueryParamValues(name string) []string {
	return allValues(req.queryParams, name)
}

// PostParams returns the form body pairs in the order they were sent.
// It is empty unless the request carried a form-urlencoded body.
func (req *Request) PostParams() []Param {
	return copyParams(req.postParams)
}

func (req *Request) PostParam(name string) (string, bool) {
	return firstValue(req.postParams, name)
}

func (req *Request) PostParamValues(name string) []string {
	return allValues(req.postParams, name)
}

func copyParams(params []Param) []Param {

	cp := make([]Param, len(params))
	copy(cp, params)

	return cp
}

func firstValue(params []Param, name string) (string, bool) {

	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}

	return "", false
}

func allValues(params []Param, name string) []string {

	var values []string
	for _, p := range params {
		if p.Name == name {
			values = append(values, p.Value)
		}
	}

	return values
}
