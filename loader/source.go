package loader

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/wasmkit/aotlink/errors"
)

// ContentTypeWasm is the content-type marker that selects the fast
// instantiation path.
const ContentTypeWasm = "application/wasm"

// Response is the outcome of a byte source fetch.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the transport succeeded.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Source produces a module's bytes on demand. A source is invoked once
// per instantiation; retries are the caller's responsibility.
type Source func(ctx context.Context) (*Response, error)

// HTTPSource fetches module bytes over HTTP. A nil client uses
// http.DefaultClient. Timeouts are the client's responsibility.
func HTTPSource(client *http.Client, url string) Source {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (*Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, errors.TransportFailed("build request for "+url, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.TransportFailed("fetch "+url, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.TransportFailed("read response body for "+url, err)
		}
		return &Response{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
		}, nil
	}
}

// FileSource reads module bytes from the local filesystem. Files with a
// .wasm extension carry the wasm content-type marker.
func FileSource(path string) Source {
	return func(ctx context.Context) (*Response, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.TransportFailed("read "+path, err)
		}
		contentType := ""
		if filepath.Ext(path) == ".wasm" {
			contentType = ContentTypeWasm
		}
		return &Response{Status: http.StatusOK, ContentType: contentType, Body: data}, nil
	}
}

// BytesSource serves an in-memory byte buffer.
func BytesSource(contentType string, data []byte) Source {
	return func(ctx context.Context) (*Response, error) {
		return &Response{Status: http.StatusOK, ContentType: contentType, Body: data}, nil
	}
}

// isWasmContentType matches the marker, ignoring media type parameters.
func isWasmContentType(ct string) bool {
	return strings.HasPrefix(ct, ContentTypeWasm)
}
