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
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

var (
	// ErrNoHandlerFound is returned by Mapping.Resolve when no mapper recognises a request.
	ErrNoHandlerFound = errors.New("no handler found")

	// ErrNoMapperForTarget is returned by Mapping.UrlFor when no mapper can encode a target. Targets are built by the
	// application itself, so this indicates a missing mount rather than bad input.
	ErrNoMapperForTarget = errors.New("no mapper can encode target")
)

// Mapping is the mapping chain of an application.
//
// The chain consists of the MountTable, mappers added with MountMapper, the HomeMapper and the system mappers for
// listeners, bookmarkable pages, shared resources and redirects, in that priority order. Decorate wraps the whole
// chain, e.g. with a LocaleFirstMapper or a CryptoMapper.
//
// A Mapping is assembled during setup and is safe for concurrent use afterwards.
type Mapping struct {
	Namespace string
	Pages     *PageRegistry
	Resources *ResourceRegistry
	Mounts    *MountTable
	Chain     *CompoundMapper
	Home      *HomeMapper
	Metrics   *Metrics

	root        Mapper
	customCount int
	closers     []func()
}

// NewMapping creates a Mapping whose root resolves to homePageClass. caching, if not nil, decorates the names of
// shared resources.
func NewMapping(homePageClass, namespace string, caching ResourceCachingStrategy) *Mapping {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	pages := NewPageRegistry()
	if homePageClass != "" {
		_ = pages.Add(homePageClass)
	}

	mapping := &Mapping{
		Namespace: namespace,
		Pages:     pages,
		Resources: NewResourceRegistry(),
		Mounts:    NewMountTable(),
		Home:      NewHomeMapper(homePageClass),
	}

	mapping.Chain = NewCompoundMapper(
		mapping.Mounts,
		mapping.Home,
		NewListenerMapper(namespace),
		NewBookmarkableMapper(namespace, mapping.Pages),
		NewSharedResourceMapper(namespace, mapping.Resources, caching),
		RedirectMapper{},
	)
	mapping.root = mapping.Chain

	return mapping
}

// Mount registers a CodingStrategy at its mount path. Page classes of bookmarkable strategies are added to Pages.
func (m *Mapping) Mount(strategy CodingStrategy) error {
	if bookmarkable, ok := strategy.(*BookmarkableStrategy); ok {
		if err := m.Pages.Add(bookmarkable.PageClass); err != nil {
			return err
		}
	}
	return m.Mounts.Mount(strategy)
}

// MountPage mounts pageClass at path using codec.
func (m *Mapping) MountPage(path, pageClass string, codec ParameterCodec) error {
	return m.Mount(NewBookmarkableStrategy(path, pageClass, "", codec))
}

// MountResource registers resource under ref and mounts it at path.
func (m *Mapping) MountResource(path string, ref ResourceReference, resource *Resource, caching ResourceCachingStrategy) error {
	if _, exists := m.Resources.Get(ref); !exists {
		if err := m.Resources.Add(ref, resource); err != nil {
			return err
		}
	}
	return m.Mount(NewResourceStrategy(path, ref, caching, m.Resources))
}

// MountMapper adds a mapper after the mounts and previously added mappers, ahead of the home page and system mappers.
func (m *Mapping) MountMapper(mapper Mapper) {
	m.customCount++
	m.Chain.Insert(m.customCount, mapper)
}

// Localize lets Urls start with one of locales. A locale segment outscores the unprefixed reading of the same Url;
// Urls without one, the root included, resolve through the chain as before. Encoded Urls carry the session locale.
func (m *Mapping) Localize(locales ...language.Tag) {
	m.Decorate(func(inner Mapper) Mapper {
		return NewCompoundMapper(NewLocaleFirstMapper(inner, locales...), inner)
	})
}

// Decorate wraps the current root mapper. Decorators added later are applied outermost.
func (m *Mapping) Decorate(decorator func(inner Mapper) Mapper) {
	m.root = decorator(m.root)
}

// OnClose registers a function Close runs, e.g. to stop a secret refresher.
func (m *Mapping) OnClose(closer func()) {
	m.closers = append(m.closers, closer)
}

// Close releases background resources held by the mapping.
func (m *Mapping) Close() {
	for _, closer := range m.closers {
		closer()
	}
	m.closers = nil
}

// Root returns the outermost mapper.
func (m *Mapping) Root() Mapper {
	return m.root
}

// Resolve maps a request to its target. ErrNoHandlerFound is returned if nothing recognises the request.
func (m *Mapping) Resolve(rc *RequestContext, request *Request) (RequestTarget, error) {
	target := m.root.MapRequest(rc, request)
	if target == nil {
		m.Metrics.requestUnresolved()
		return nil, errors.Wrapf(ErrNoHandlerFound, "[/%s]", request.Url)
	}

	m.Metrics.requestResolved(target)
	return target, nil
}

// UrlFor renders the Url of target. ErrNoMapperForTarget is returned if no mapper can encode it.
func (m *Mapping) UrlFor(rc *RequestContext, target RequestTarget) (*Url, error) {
	if u := m.root.MapHandler(rc, target); u != nil {
		return u, nil
	}

	m.Metrics.encodeFailed()
	rc.Logger().Errorf("no mapper can encode %s", target)
	return nil, errors.Wrapf(ErrNoMapperForTarget, "%s", target)
}

// MustUrlFor is UrlFor for targets the application is certain to have mapped. It panics otherwise.
func (m *Mapping) MustUrlFor(rc *RequestContext, target RequestTarget) *Url {
	u, err := m.UrlFor(rc, target)
	if err != nil {
		panic(err)
	}
	return u
}
