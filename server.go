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
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/foundation/v2/debugz"
	"github.com/openziti/xmapper/middleware"
)

const (
	MovedAddressHeader = "x-moved-address"
)

// ServerContext is stored on the context of every request a Server handles.
type ServerContext struct {
	BindPoint    *BindPointConfig
	ServerConfig *ServerConfig
	Config       *InstanceConfig
}

type namedHttpServer struct {
	*http.Server
	BindPointConfig *BindPointConfig
	ServerConfig    *ServerConfig
	InstanceConfig  *InstanceConfig
}

func (s namedHttpServer) NewBaseContext(_ net.Listener) context.Context {
	serverContext := &ServerContext{
		BindPoint:    s.BindPointConfig,
		ServerConfig: s.ServerConfig,
		Config:       s.InstanceConfig,
	}

	ctx := context.Background()
	ctx = context.WithValue(ctx, ServerContextKey, serverContext)

	return ctx
}

// Server represents all the http.Server's necessary to run a single ServerConfig, each serving the instance's
// Mapping through a Dispatcher.
type Server struct {
	DefaultHttpHandlerProviderImpl
	HttpServers    []*namedHttpServer
	logWriter      *io.PipeWriter
	Dispatcher     *Dispatcher
	OnHandlerPanic func(writer http.ResponseWriter, request *http.Request, panicVal interface{})
	ServerConfig   *ServerConfig
}

// NewServer creates a new Server from a ServerConfig. Requests are dispatched over the instance's Mapping.
func NewServer(instance Instance, serverConfig *ServerConfig) (*Server, error) {
	logWriter := pfxlog.Logger().Writer()

	var tlsConfig *tls.Config
	if serverConfig.TLSEnabled() {
		tlsConfig = serverConfig.Identity.ServerTLSConfig()
		tlsConfig.ClientAuth = tls.RequestClientCert
		tlsConfig.MinVersion = uint16(serverConfig.Options.MinTLSVersion)
		tlsConfig.MaxVersion = uint16(serverConfig.Options.MaxTLSVersion)
	}

	mapping := instance.GetMapping()
	if mapping == nil {
		return nil, errors.New("error creating server: no mapping built")
	}

	server := &Server{
		logWriter:    logWriter,
		HttpServers:  []*namedHttpServer{},
		ServerConfig: serverConfig,
	}

	server.SetParent(instance)

	server.Dispatcher = NewDispatcher(mapping, instance.GetSessions(), instance.GetTargetHandler())
	server.Dispatcher.SetParent(server)

	for _, bindPoint := range serverConfig.BindPoints {
		namedServer := &namedHttpServer{
			ServerConfig:    serverConfig,
			BindPointConfig: bindPoint,
			InstanceConfig:  instance.GetConfig(),
			Server: &http.Server{
				Addr:         bindPoint.InterfaceAddress,
				WriteTimeout: serverConfig.Options.WriteTimeout,
				ReadTimeout:  serverConfig.Options.ReadTimeout,
				IdleTimeout:  serverConfig.Options.IdleTimeout,
				Handler:      server.wrapHandler(serverConfig, bindPoint, server.Dispatcher),
				TLSConfig:    tlsConfig,
				ErrorLog:     log.New(logWriter, "", 0),
			},
		}

		namedServer.BaseContext = namedServer.NewBaseContext

		server.HttpServers = append(server.HttpServers, namedServer)
	}

	return server, nil
}

func (server *Server) wrapHandler(config *ServerConfig, point *BindPointConfig, handler http.Handler) http.Handler {
	//innermost/bottom -> outermost/top
	handler = server.wrapMetrics(config, handler)
	handler = server.wrapSetMovedAddressHeader(point, handler)
	handler = server.wrapPanicRecovery(handler)
	if config.Options.Compress {
		handler = middleware.NewCompressionHandler(handler)
	}
	return handler
}

// wrapMetrics serves the mapping metrics at the configured metrics path, if any.
func (server *Server) wrapMetrics(config *ServerConfig, handler http.Handler) http.Handler {
	metrics := server.Dispatcher.Mapping.Metrics
	if config.Options.MetricsPath == "" || metrics == nil {
		return handler
	}

	metricsHandler := metrics.Handler()
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == config.Options.MetricsPath {
			metricsHandler.ServeHTTP(writer, request)
			return
		}
		handler.ServeHTTP(writer, request)
	})
}

// wrapPanicRecovery wraps a http.Handler with another http.Handler that provides recovery.
func (server *Server) wrapPanicRecovery(handler http.Handler) http.Handler {
	wrappedHandler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			if panicVal := recover(); panicVal != nil {
				if server.OnHandlerPanic != nil {
					server.OnHandlerPanic(writer, request, panicVal)
					return
				}
				pfxlog.Logger().Errorf("panic caught by server handler: %v\n%v", panicVal, debugz.GenerateLocalStack())
				writer.WriteHeader(http.StatusInternalServerError)
			}
		}()

		handler.ServeHTTP(writer, request)
	})

	return wrappedHandler
}

// wrapSetMovedAddressHeader will check to see if the bindPoint is configured to advertise a "new address". If so
// the value is added to the MovedAddressHeader on every response, telling clients where the application is moving.
func (server *Server) wrapSetMovedAddressHeader(point *BindPointConfig, handler http.Handler) http.Handler {
	wrappedHandler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if point.NewAddress != "" {
			scheme := "http://"
			if server.ServerConfig.TLSEnabled() {
				scheme = "https://"
			}
			writer.Header().Set(MovedAddressHeader, scheme+point.NewAddress)
		}

		handler.ServeHTTP(writer, request)
	})

	return wrappedHandler
}

// Start the server and all underlying http.Server's. It blocks until every http.Server stopped and returns the first
// error other than http.ErrServerClosed.
func (server *Server) Start() error {
	logger := pfxlog.Logger()

	errs := make(chan error, len(server.HttpServers))
	for _, httpServer := range server.HttpServers {
		logger.Infof("starting to listen and serve on %s for server %s (tls: %v)", httpServer.Addr, httpServer.ServerConfig.Name, httpServer.TLSConfig != nil)

		l, err := httpServer.BindPointConfig.Listener(httpServer.ServerConfig.Name, httpServer.TLSConfig)
		if err != nil {
			return fmt.Errorf("error listening: %s", err)
		}

		go func(httpServer *namedHttpServer) {
			if err := httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("error serving on %s: %s", httpServer.Addr, err)
				return
			}
			errs <- nil
		}(httpServer)
	}

	var result error
	for range server.HttpServers {
		if err := <-errs; err != nil && result == nil {
			result = err
		}
	}

	return result
}

// Shutdown stops the server and all underlying http.Server's
func (server *Server) Shutdown(ctx context.Context) {
	_ = server.logWriter.Close()

	for _, httpServer := range server.HttpServers {
		localServer := httpServer
		func() {
			_ = localServer.Shutdown(ctx)
		}()
	}
}
