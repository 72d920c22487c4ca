package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/jsonbatch/internal/domain"
	"github.com/bft-labs/jsonbatch/internal/ports"
)

// Supported body compressions.
const (
	CompressionNone = ""
	CompressionGzip = "gzip"
)

// maxResponseBody caps how much of a response body is kept for logging.
const maxResponseBody = 64 << 10

// Client builds asynchronous POST requests on top of a ports.HTTPClient.
type Client struct {
	client      ports.HTTPClient
	compression string
}

// NewClient creates a client. compression must be "" or "gzip".
func NewClient(client ports.HTTPClient, compression string) (*Client, error) {
	switch compression {
	case CompressionNone, CompressionGzip:
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client, compression: compression}, nil
}

// NewPost builds a POST request that has not been started. Handlers must be
// registered on the returned request before calling Start. Errors wrap
// domain.ErrRequestConstruction.
func (c *Client) NewPost(ctx context.Context, url string, body []byte, header http.Header) (*Request, error) {
	payload := body
	if c.compression == CompressionGzip {
		var err error
		if payload, err = gzipBody(body); err != nil {
			return nil, fmt.Errorf("%w: compress body: %w", domain.ErrRequestConstruction, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRequestConstruction, err)
	}
	req.Header = header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if c.compression == CompressionGzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	return &Request{client: c.client, req: req}, nil
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
