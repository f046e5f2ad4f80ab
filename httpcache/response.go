package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Response is the stored form of a cached HTTP response.
type Response struct {
	StatusCode int         `json:"status" msgpack:"status"`
	Proto      string      `json:"proto,omitempty" msgpack:"proto,omitempty"`
	Header     http.Header `json:"header,omitempty" msgpack:"header,omitempty"`
	Body       []byte      `json:"body,omitempty" msgpack:"body,omitempty"`
}

func successful(code int) bool {
	return code >= 200 && code < 300
}

func snapshot(resp *http.Response, body []byte) Response {
	return Response{
		StatusCode: resp.StatusCode,
		Proto:      resp.Proto,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
}

// HTTP builds a response for req carrying the stored status, headers and
// body.
func (r Response) HTTP(req *http.Request) *http.Response {
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok {
		major, minor = 1, 1
	}

	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        strconv.Itoa(r.StatusCode) + " " + http.StatusText(r.StatusCode),
		StatusCode:    r.StatusCode,
		Proto:         proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

// brokenBody yields the bytes read before a body read failed, then the
// failure itself.
type brokenBody struct {
	r   io.Reader
	err error
}

func (b *brokenBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		return n, b.err
	}
	return n, err
}

func (b *brokenBody) Close() error { return nil }

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return body, fmt.Errorf("httpcache: read body: %w", err)
	}
	return body, nil
}
