// Package httpclient builds the single *http.Client shared by feed sources,
// the scraper and the completion providers.
package httpclient

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

type Options struct {
	UserAgent string
	Timeout   time.Duration // whole-request cap; 0 means none
}

// New returns a client whose transport advertises gzip, deflate and brotli
// and transparently decodes the response body.
func New(opts Options) *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true,
	}
	return &http.Client{
		Transport: &transport{base: base, userAgent: opts.UserAgent},
		Timeout:   opts.Timeout,
	}
}

type transport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if body != resp.Body {
		resp.Body = &decodedBody{Reader: body, closer: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Uncompressed = true
	}
	return resp, nil
}

// decompressReader wraps r with the decoder for the given Content-Encoding.
func decompressReader(encoding string, r io.ReadCloser) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return deflateReader(r)
	case "br":
		return brotli.NewReader(r), nil
	default:
		return r, nil
	}
}

// deflateReader decodes HTTP "deflate", which is zlib-wrapped. Some servers
// send raw DEFLATE instead, so the zlib header is sniffed first.
func deflateReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(head) == 2 && head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

type decodedBody struct {
	io.Reader
	closer io.Closer
}

func (d *decodedBody) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		c.Close()
	}
	return d.closer.Close()
}
