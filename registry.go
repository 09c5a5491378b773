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
	"fmt"

	"github.com/sirupsen/logrus"
)

// StrategyFactory creates CodingStrategy instances for a binding from MountConfig options.
type StrategyFactory interface {
	Binding() string
	Validate(config *MountConfig) error
	New(mapping *Mapping, config *MountConfig) (CodingStrategy, error)
}

// Registry describes a registry of binding to StrategyFactory registrations
type Registry interface {
	Add(factory StrategyFactory) error
	Get(binding string) StrategyFactory
}

// RegistryMap is a basic Registry implementation backed by a simple mapping of binding (string) to StrategyFactory
// instances
type RegistryMap struct {
	factories map[string]StrategyFactory
}

// NewRegistryMap creates a new, empty RegistryMap
func NewRegistryMap() *RegistryMap {
	return &RegistryMap{
		factories: map[string]StrategyFactory{},
	}
}

// NewDefaultRegistry creates a RegistryMap holding the built-in bindings: indexed, uri, pairs, query and resource.
func NewDefaultRegistry() *RegistryMap {
	registry := NewRegistryMap()
	for _, factory := range []StrategyFactory{
		&BookmarkableStrategyFactory{Codec: IndexedCodec{}},
		&BookmarkableStrategyFactory{Codec: URICodec{}},
		&BookmarkableStrategyFactory{Codec: PairsCodec{}},
		&BookmarkableStrategyFactory{Codec: QueryCodec{}},
		&ResourceStrategyFactory{},
	} {
		if err := registry.Add(factory); err != nil {
			panic(err)
		}
	}
	return registry
}

// Add adds a factory to the registry. Errors if a previous factory with the same binding is registered.
func (registry RegistryMap) Add(factory StrategyFactory) error {
	logrus.Debugf("adding strategy factory with binding: %v", factory.Binding())
	if _, ok := registry.factories[factory.Binding()]; ok {
		return fmt.Errorf("binding [%s] already registered", factory.Binding())
	}

	registry.factories[factory.Binding()] = factory

	return nil
}

// Get retrieves a factory based on a binding or nil if no factory for the binding is registered
func (registry RegistryMap) Get(binding string) StrategyFactory {
	return registry.factories[binding]
}
