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
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyPageClass is returned when a page class without a name is registered.
	ErrEmptyPageClass = errors.New("empty page class name")
	// ErrInvalidPageClass is returned for page class names that cannot be carried in a single Url segment.
	ErrInvalidPageClass = errors.New("invalid page class name")
)

// PageRegistry holds the page classes the application knows. Generic mappers only decode Urls naming a registered
// class, so clients cannot address arbitrary names.
type PageRegistry struct {
	classes map[string]struct{}
}

func NewPageRegistry(classes ...string) *PageRegistry {
	registry := &PageRegistry{classes: map[string]struct{}{}}
	for _, class := range classes {
		_ = registry.Add(class)
	}
	return registry
}

// Add registers a page class. Registering the same class twice is a no-op.
func (registry *PageRegistry) Add(class string) error {
	if class == "" {
		return ErrEmptyPageClass
	}
	if strings.ContainsAny(class, "/?#") {
		return errors.Wrapf(ErrInvalidPageClass, "[%s]", class)
	}

	if _, ok := registry.classes[class]; !ok {
		logrus.Debugf("adding page class: %v", class)
		registry.classes[class] = struct{}{}
	}
	return nil
}

// Has reports whether class is registered.
func (registry *PageRegistry) Has(class string) bool {
	_, ok := registry.classes[class]
	return ok
}

// Classes returns the registered classes sorted by name.
func (registry *PageRegistry) Classes() []string {
	result := make([]string, 0, len(registry.classes))
	for class := range registry.classes {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}
