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

package xmapper

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, configure func(options *ServerConfigOptions)) (*Server, *InstanceImpl) {
	mapping := NewMapping("Home", "", nil)
	require.NoError(t, mapping.MountPage("docs", "Docs", URICodec{}))
	mapping.Metrics = NewMetrics()

	targets := TargetHandlerFunc(func(writer http.ResponseWriter, _ *http.Request, _ *RequestContext, target RequestTarget) {
		page := target.(*BookmarkablePageTarget)
		if page.Parameters[URIParameter] == "panic" {
			panic("boom")
		}
		writer.Header().Set("Content-Type", "text/html")
		_, _ = writer.Write([]byte("<html>" + strings.Repeat(page.PageClass, 100) + "</html>"))
	})

	instance := NewDefaultInstance(NewDefaultRegistry(), targets, nil)
	instance.Mapping = mapping

	serverConfig := &ServerConfig{
		Name:       "test",
		BindPoints: []*BindPointConfig{{InterfaceAddress: "127.0.0.1:18080", Address: "localhost:18080", NewAddress: "example.com:443"}},
	}
	serverConfig.Options.Default()
	if configure != nil {
		configure(&serverConfig.Options)
	}
	require.NoError(t, serverConfig.Validate())

	server, err := NewServer(instance, serverConfig)
	require.NoError(t, err)
	require.Len(t, server.HttpServers, 1)

	return server, instance
}

func serve(server *Server, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	server.HttpServers[0].Handler.ServeHTTP(recorder, request)
	return recorder
}

func TestServer(t *testing.T) {
	t.Run("requests are dispatched over the mapping", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, nil)
		recorder := serve(server, httptest.NewRequest(http.MethodGet, "/docs/intro", nil))

		req.Equal(http.StatusOK, recorder.Code)
		req.Contains(recorder.Body.String(), "DocsDocs")
		req.Equal("http://example.com:443", recorder.Header().Get(MovedAddressHeader))
		req.Nil(server.HttpServers[0].TLSConfig)
	})

	t.Run("responses are compressed when the client accepts it", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, nil)
		request := httptest.NewRequest(http.MethodGet, "/docs/intro", nil)
		request.Header.Set("Accept-Encoding", "gzip")

		recorder := serve(server, request)
		req.Equal("gzip", recorder.Header().Get("Content-Encoding"))

		reader, err := gzip.NewReader(recorder.Body)
		req.NoError(err)
		body, err := io.ReadAll(reader)
		req.NoError(err)
		req.Contains(string(body), "DocsDocs")
	})

	t.Run("compression can be disabled", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, func(options *ServerConfigOptions) {
			options.Compress = false
		})
		request := httptest.NewRequest(http.MethodGet, "/docs/intro", nil)
		request.Header.Set("Accept-Encoding", "gzip")

		recorder := serve(server, request)
		req.Empty(recorder.Header().Get("Content-Encoding"))
	})

	t.Run("the metrics path exposes the mapping metrics", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, func(options *ServerConfigOptions) {
			options.MetricsPath = "/metrics"
		})
		serve(server, httptest.NewRequest(http.MethodGet, "/docs/intro", nil))
		serve(server, httptest.NewRequest(http.MethodGet, "/nowhere/else", nil))

		recorder := serve(server, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		req.Equal(http.StatusOK, recorder.Code)
		req.Contains(recorder.Body.String(), `xmapper_requests_resolved_total{target="page"} 1`)
		req.Contains(recorder.Body.String(), "xmapper_requests_unresolved_total 1")
	})

	t.Run("without a metrics path the path goes to the mapping", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, nil)
		recorder := serve(server, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		req.Equal(http.StatusNotFound, recorder.Code)
	})

	t.Run("a panicking handler results in an internal server error", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, nil)
		recorder := serve(server, httptest.NewRequest(http.MethodGet, "/docs/panic", nil))
		req.Equal(http.StatusInternalServerError, recorder.Code)
	})

	t.Run("a panic handler can take over", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, nil)
		var caught interface{}
		server.OnHandlerPanic = func(writer http.ResponseWriter, _ *http.Request, panicVal interface{}) {
			caught = panicVal
			writer.WriteHeader(http.StatusServiceUnavailable)
		}

		recorder := serve(server, httptest.NewRequest(http.MethodGet, "/docs/panic", nil))
		req.Equal(http.StatusServiceUnavailable, recorder.Code)
		req.Equal("boom", caught)
	})

	t.Run("the base context carries the server context", func(t *testing.T) {
		req := require.New(t)

		server, _ := newTestServer(t, nil)
		httpServer := server.HttpServers[0]

		serverContext := ServerContextFromRequestContext(httpServer.BaseContext(nil))
		req.NotNil(serverContext)
		req.Equal("test", serverContext.ServerConfig.Name)
		req.Equal("127.0.0.1:18080", serverContext.BindPoint.InterfaceAddress)
	})

	t.Run("the instance default handler is used for unresolved requests", func(t *testing.T) {
		req := require.New(t)

		server, instance := newTestServer(t, nil)
		instance.SetDefaultHttpHandler(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusGone)
		}))

		recorder := serve(server, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
		req.Equal(http.StatusGone, recorder.Code)
	})
}

func TestServerConfig(t *testing.T) {
	t.Run("a server needs a name and bind points", func(t *testing.T) {
		req := require.New(t)

		req.Error((&ServerConfig{}).Parse(map[interface{}]interface{}{"bindPoints": []interface{}{}}, "web"))
		req.Error((&ServerConfig{}).Parse(map[interface{}]interface{}{"name": "a"}, "web"))

		config := &ServerConfig{}
		req.NoError(config.Parse(map[interface{}]interface{}{"name": "a", "bindPoints": []interface{}{}}, "web"))
		req.Error(config.Validate())
	})

	t.Run("options default sensibly", func(t *testing.T) {
		req := require.New(t)

		config := &ServerConfig{}
		req.NoError(config.Parse(map[interface{}]interface{}{
			"name": "a",
			"bindPoints": []interface{}{
				map[interface{}]interface{}{"interface": "0.0.0.0:8080", "address": "localhost:8080"},
			},
		}, "web"))
		req.NoError(config.Validate())

		req.True(config.Options.Compress)
		req.Equal(MinTLSVersion, config.Options.MinTLSVersion)
		req.Equal(DefaultHttpIdleTimeout, config.Options.IdleTimeout)
		req.Empty(config.Options.MetricsPath)
	})
}
