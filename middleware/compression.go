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
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

const (
	EncodingBrotli  = "br"
	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
)

// SupportedEncodings in order of preference when the client weighs them equally.
var SupportedEncodings = []string{EncodingBrotli, EncodingGzip, EncodingDeflate}

// DefaultCompressMIME lists the content types that are compressed.
var DefaultCompressMIME = []string{
	"text/plain",
	"text/html",
	"text/css",
	"text/javascript",
	"application/javascript",
	"application/json",
	"application/xml",
	"image/svg+xml",
}

type encoding struct {
	name string
	q    float64
	rank int
}

// NewCompressionHandler compresses responses of the DefaultCompressMIME types with the best encoding the client
// accepts.
func NewCompressionHandler(next http.Handler) http.Handler {
	return NewCompressionHandlerForTypes(next, DefaultCompressMIME)
}

// NewCompressionHandlerForTypes is NewCompressionHandler with a custom list of compressible content types.
func NewCompressionHandlerForTypes(next http.Handler, mime []string) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		enc := AcceptedEncoding(request)
		if enc == "" || request.Method == http.MethodHead || request.Header.Get("Range") != "" {
			next.ServeHTTP(writer, request)
			return
		}

		cw := &compressWriter{ResponseWriter: writer, encoding: enc, mime: mime}
		defer cw.close()

		next.ServeHTTP(cw, request)
	})
}

// AcceptedEncoding returns the supported encoding with the highest q value in the request's Accept-Encoding header
// or "" if there is none.
func AcceptedEncoding(request *http.Request) string {
	var encs []encoding
	for _, s := range strings.Split(request.Header.Get("Accept-Encoding"), ",") {
		sp := strings.Split(s, ";")
		name := strings.ToLower(strings.TrimSpace(sp[0]))

		rank := indexOf(SupportedEncodings, name)
		if rank < 0 {
			continue
		}

		enc := encoding{name: name, q: 1, rank: rank}
		for _, spi := range sp[1:] {
			spi = strings.TrimSpace(spi)
			if !strings.HasPrefix(spi, "q=") {
				continue
			}

			if q, err := strconv.ParseFloat(strings.TrimPrefix(spi, "q="), 64); err == nil {
				enc.q = q
			}
			break
		}

		if enc.q > 0 {
			encs = append(encs, enc)
		}
	}

	if len(encs) == 0 {
		return ""
	}

	sort.SliceStable(encs, func(i, j int) bool {
		if encs[i].q != encs[j].q {
			return encs[i].q > encs[j].q
		}
		return encs[i].rank < encs[j].rank
	})

	return encs[0].name
}

func newEncoder(enc string, w io.Writer) io.WriteCloser {
	switch enc {
	case EncodingBrotli:
		return brotli.NewWriter(w)
	case EncodingGzip:
		return gzip.NewWriter(w)
	default:
		fw, _ := flate.NewWriter(w, flate.DefaultCompression)
		return fw
	}
}

// compressWriter decides on the first WriteHeader or Write whether the response is compressed.
type compressWriter struct {
	http.ResponseWriter
	encoding string
	mime     []string
	encoder  io.WriteCloser
	decided  bool
}

func (w *compressWriter) WriteHeader(status int) {
	if !w.decided {
		w.decide(status)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if !w.decided {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}

	if w.encoder != nil {
		return w.encoder.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *compressWriter) Flush() {
	if flusher, ok := w.encoder.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *compressWriter) decide(status int) {
	w.decided = true

	if status < http.StatusOK || status == http.StatusNoContent || status == http.StatusNotModified {
		return
	}

	header := w.Header()
	if !canEncode(header, w.mime) {
		return
	}

	header.Del("Content-Length")
	header.Set("Content-Encoding", w.encoding)
	if indexOf(header.Values("Vary"), "Accept-Encoding") < 0 {
		header.Add("Vary", "Accept-Encoding")
	}

	w.encoder = newEncoder(w.encoding, w.ResponseWriter)
}

func (w *compressWriter) close() {
	if w.encoder != nil {
		_ = w.encoder.Close()
	}
}

func canEncode(header http.Header, mime []string) bool {
	if ce := header.Get("Content-Encoding"); ce != "" && ce != "identity" {
		return false
	}

	for _, directive := range strings.Split(header.Get("Cache-Control"), ",") {
		if strings.ToLower(strings.TrimSpace(directive)) == "no-transform" {
			return false
		}
	}

	ct := header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}

	return indexOf(mime, strings.TrimSpace(ct)) >= 0
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}
