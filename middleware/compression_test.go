/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

var page = "<html><body>" + strings.Repeat("compressible ", 200) + "</body></html>"

func newTestHandler(contentType string) http.Handler {
	return NewCompressionHandler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			writer.Header().Set("Content-Type", contentType)
		}
		writer.Header().Set("Content-Length", "999")
		_, _ = writer.Write([]byte(page))
	}))
}

func get(handler http.Handler, method, acceptEncoding string, header ...string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, "/", nil)
	if acceptEncoding != "" {
		request.Header.Set("Accept-Encoding", acceptEncoding)
	}
	for i := 0; i+1 < len(header); i += 2 {
		request.Header.Set(header[i], header[i+1])
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestAcceptedEncoding(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"", ""},
		{"identity", ""},
		{"gzip", EncodingGzip},
		{"gzip, deflate, br", EncodingBrotli},
		{"deflate, gzip", EncodingGzip},
		{"br;q=0.5, gzip;q=0.8", EncodingGzip},
		{"br;q=0, gzip;q=0", ""},
		{"GZIP", EncodingGzip},
		{"deflate;q=1.0, br;q=0.9", EncodingDeflate},
		{"*;q=1, deflate", EncodingDeflate},
	}

	for _, test := range tests {
		t.Run("accept encoding "+test.header, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.Header.Set("Accept-Encoding", test.header)
			require.Equal(t, test.expected, AcceptedEncoding(request))
		})
	}
}

func TestCompressionHandler(t *testing.T) {
	t.Run("gzip responses decode to the original body", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("text/html; charset=utf-8"), http.MethodGet, "gzip")
		req.Equal(EncodingGzip, recorder.Header().Get("Content-Encoding"))
		req.Empty(recorder.Header().Get("Content-Length"))
		req.Contains(recorder.Header().Values("Vary"), "Accept-Encoding")
		req.Less(recorder.Body.Len(), len(page))

		reader, err := gzip.NewReader(recorder.Body)
		req.NoError(err)
		body, err := io.ReadAll(reader)
		req.NoError(err)
		req.Equal(page, string(body))
	})

	t.Run("brotli is preferred and decodes to the original body", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("text/css"), http.MethodGet, "gzip, br")
		req.Equal(EncodingBrotli, recorder.Header().Get("Content-Encoding"))

		body, err := io.ReadAll(brotli.NewReader(recorder.Body))
		req.NoError(err)
		req.Equal(page, string(body))
	})

	t.Run("deflate responses decode to the original body", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("application/json"), http.MethodGet, "deflate")
		req.Equal(EncodingDeflate, recorder.Header().Get("Content-Encoding"))

		body, err := io.ReadAll(flate.NewReader(bytes.NewReader(recorder.Body.Bytes())))
		req.NoError(err)
		req.Equal(page, string(body))
	})

	t.Run("the content type is sniffed when not set", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler(""), http.MethodGet, "gzip")
		req.Equal("text/html; charset=utf-8", recorder.Header().Get("Content-Type"))
		req.Equal(EncodingGzip, recorder.Header().Get("Content-Encoding"))
	})

	t.Run("other content types are not compressed", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("image/png"), http.MethodGet, "gzip")
		req.Empty(recorder.Header().Get("Content-Encoding"))
		req.Equal(page, recorder.Body.String())
	})

	t.Run("clients without a supported encoding get the plain body", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("text/html"), http.MethodGet, "identity")
		req.Empty(recorder.Header().Get("Content-Encoding"))
		req.Equal(page, recorder.Body.String())
	})

	t.Run("range requests are not compressed", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("text/html"), http.MethodGet, "gzip", "Range", "bytes=0-10")
		req.Empty(recorder.Header().Get("Content-Encoding"))
	})

	t.Run("head requests are not compressed", func(t *testing.T) {
		req := require.New(t)

		recorder := get(newTestHandler("text/html"), http.MethodHead, "gzip")
		req.Empty(recorder.Header().Get("Content-Encoding"))
	})

	t.Run("already encoded responses are left alone", func(t *testing.T) {
		req := require.New(t)

		handler := NewCompressionHandler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "text/html")
			writer.Header().Set("Content-Encoding", "x-custom")
			_, _ = writer.Write([]byte(page))
		}))

		recorder := get(handler, http.MethodGet, "gzip")
		req.Equal("x-custom", recorder.Header().Get("Content-Encoding"))
		req.Equal(page, recorder.Body.String())
	})

	t.Run("no-transform responses are left alone", func(t *testing.T) {
		req := require.New(t)

		handler := NewCompressionHandler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "text/html")
			writer.Header().Set("Cache-Control", "public, no-transform")
			_, _ = writer.Write([]byte(page))
		}))

		recorder := get(handler, http.MethodGet, "gzip")
		req.Empty(recorder.Header().Get("Content-Encoding"))
	})

	t.Run("not modified responses carry no encoding", func(t *testing.T) {
		req := require.New(t)

		handler := NewCompressionHandler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "text/html")
			writer.WriteHeader(http.StatusNotModified)
		}))

		recorder := get(handler, http.MethodGet, "gzip")
		req.Equal(http.StatusNotModified, recorder.Code)
		req.Empty(recorder.Header().Get("Content-Encoding"))
	})

	t.Run("custom types can be compressed", func(t *testing.T) {
		req := require.New(t)

		handler := NewCompressionHandlerForTypes(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "application/wasm")
			_, _ = writer.Write([]byte(page))
		}), []string{"application/wasm"})

		recorder := get(handler, http.MethodGet, "gzip")
		req.Equal(EncodingGzip, recorder.Header().Get("Content-Encoding"))
	})
}
