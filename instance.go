/*
	Copyright NetFoundry, Inc.

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
	"net/http"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/identity"
	"golang.org/x/text/language"
)

// Instance implements config.Subconfig to allow Instance implementations to be used during the normal component startup
// and configuration phase.
type Instance interface {
	DefaultHttpHandlerProvider
	Enabled() bool
	LoadConfig(cfgmap map[interface{}]interface{}) error
	Run()
	Shutdown()
	GetRegistry() Registry
	GetConfig() *InstanceConfig
	GetMapping() *Mapping
	GetSessions() SessionStore
	GetTargetHandler() TargetHandler
}

const (
	DefaultIdentitySection = "identity"
	DefaultConfigSection   = "web"
	DefaultMappingSection  = "mapping"
)

// InstanceImpl is a basic implementation of Instance.
type InstanceImpl struct {
	DefaultHttpHandlerProviderImpl
	Config   *InstanceConfig
	servers  []*Server
	Registry Registry
	Mapping  *Mapping
	Sessions SessionStore
	Targets  TargetHandler
}

var _ Instance = &InstanceImpl{}

// NewDefaultInstance creates an InstanceImpl using registry for mount bindings and targets to render pages and
// listener invocations. defaultIdentity may be nil, servers without an identity of their own then serve plain http.
func NewDefaultInstance(registry Registry, targets TargetHandler, defaultIdentity identity.Identity) *InstanceImpl {
	return &InstanceImpl{
		Registry: registry,
		Targets:  targets,
		Config: &InstanceConfig{
			DefaultIdentitySection: DefaultIdentitySection,
			DefaultIdentity:        defaultIdentity,
			Section:                DefaultConfigSection,
			MappingSection:         DefaultMappingSection,
		},
	}
}

// GetRegistry returns the associated Registry
func (i *InstanceImpl) GetRegistry() Registry {
	return i.Registry
}

// GetConfig returns the associated InstanceConfig
func (i *InstanceImpl) GetConfig() *InstanceConfig {
	return i.Config
}

// GetMapping returns the Mapping built by LoadConfig
func (i *InstanceImpl) GetMapping() *Mapping {
	return i.Mapping
}

// GetSessions returns the SessionStore, creating an in-memory one on first use. New sessions start with the first
// configured locale.
func (i *InstanceImpl) GetSessions() SessionStore {
	if i.Sessions == nil {
		defaultLocale := language.Und
		if i.Config.Mapping != nil && len(i.Config.Mapping.Locales) > 0 {
			defaultLocale = i.Config.Mapping.Locales[0]
		}
		i.Sessions = NewMemorySessionStore(defaultLocale)
	}
	return i.Sessions
}

// GetTargetHandler returns the TargetHandler rendering pages and listener invocations
func (i *InstanceImpl) GetTargetHandler() TargetHandler {
	return i.Targets
}

// Enabled returns true/false on whether this subconfig should be considered enabled
func (i *InstanceImpl) Enabled() bool {
	return i.Config.Enabled()
}

// LoadConfig handles subconfig operations for Instance components and builds the Mapping.
func (i *InstanceImpl) LoadConfig(cfgmap map[interface{}]interface{}) error {
	if err := i.Config.Parse(cfgmap); err != nil {
		return err
	}

	//validate sets enabled flag to true on success
	if err := i.Config.Validate(i.Registry); err != nil {
		return err
	}

	mapping, err := i.Config.Mapping.Build(i.Registry)
	if err != nil {
		return err
	}

	mapping.Metrics = NewMetrics()
	i.Mapping = mapping

	return nil
}

// Build assembles all the components from configuration and prepares to have Start() called.
func (i *InstanceImpl) Build() {
	for _, serverConfig := range i.Config.ServerConfigs {
		server, err := NewServer(i, serverConfig)

		if err != nil {
			pfxlog.Logger().Fatalf("error starting server for %s: %v", serverConfig.Name, err)
		}

		i.servers = append(i.servers, server)
	}
}

// Start calls Start() on all Servers that were built by calling Build().
func (i *InstanceImpl) Start() {
	for _, server := range i.servers {
		s := server //avoid closure scoping issues
		go func() {
			if err := s.Start(); err != nil {
				pfxlog.Logger().Errorf("error starting server %s: %v", s.ServerConfig.Name, err)
			}
		}()
	}
}

// Run builds and starts the necessary Server's
func (i *InstanceImpl) Run() {
	i.Build()
	i.Start()
}

// Shutdown stop all running Server's and releases the Mapping
func (i *InstanceImpl) Shutdown() {
	for _, server := range i.servers {
		localServer := server
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
			defer cancel()
			localServer.Shutdown(ctx)
		}()
	}

	if i.Mapping != nil {
		i.Mapping.Close()
	}
}

// DefaultHttpHandlerProvider is an interface that allows different levels of components to supply the handler used
// for requests no mapper resolves: Instance > ServerConfig > Server > Dispatcher
type DefaultHttpHandlerProvider interface {
	GetDefaultHttpHandler() http.Handler
	SetDefaultHttpHandler(handler http.Handler)
	SetParent(parent DefaultHttpHandlerProvider)
}

type DefaultHttpHandlerProviderImpl struct {
	Parent      DefaultHttpHandlerProvider
	HttpHandler http.Handler
}

var _ DefaultHttpHandlerProvider = &DefaultHttpHandlerProviderImpl{}

func handler404(rw http.ResponseWriter, _ *http.Request) {
	rw.WriteHeader(http.StatusNotFound)
	_, _ = rw.Write([]byte{})
}

func (d *DefaultHttpHandlerProviderImpl) GetDefaultHttpHandler() http.Handler {
	if d.HttpHandler == nil && d.Parent != nil {
		if handler := d.Parent.GetDefaultHttpHandler(); handler == nil {
			return http.HandlerFunc(handler404)
		} else {
			return handler
		}
	}

	return d.HttpHandler
}

func (d *DefaultHttpHandlerProviderImpl) SetDefaultHttpHandler(handler http.Handler) {
	d.HttpHandler = handler
}

func (d *DefaultHttpHandlerProviderImpl) SetParent(parent DefaultHttpHandlerProvider) {
	d.Parent = parent
}
