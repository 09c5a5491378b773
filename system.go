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
	"net/url"
	"strings"
)

const (
	DefaultNamespace = "sys"

	BookmarkableSegment = "bookmarkable"
	ListenerSegment     = "listener"
	ResourceSegment     = "resource"
)

// The system mappers address targets that have no mount of their own under a fixed namespace segment, e.g.
// "sys/bookmarkable/<page class>". They score by how many of their fixed segments match.

// BookmarkableMapper encodes any registered page class as <namespace>/bookmarkable/<class>?<params>.
type BookmarkableMapper struct {
	Namespace string
	Pages     *PageRegistry
}

var _ Mapper = &BookmarkableMapper{}

func NewBookmarkableMapper(namespace string, pages *PageRegistry) *BookmarkableMapper {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &BookmarkableMapper{Namespace: namespace, Pages: pages}
}

func (m *BookmarkableMapper) matches(u *Url) bool {
	return len(u.Segments) == 3 && u.StartsWith([]string{m.Namespace, BookmarkableSegment}) && m.Pages.Has(u.Segments[2])
}

func (m *BookmarkableMapper) MapRequest(_ *RequestContext, request *Request) RequestTarget {
	if !m.matches(request.Url) {
		return nil
	}

	params := PageParameters{}
	params.mergeQuery(request.Url.Query)

	return &BookmarkablePageTarget{
		PageClass:  request.Url.Segments[2],
		Parameters: params,
	}
}

func (m *BookmarkableMapper) CompatibilityScore(request *Request) int {
	if m.matches(request.Url) {
		return 2
	}
	return 0
}

func (m *BookmarkableMapper) MapHandler(_ *RequestContext, target RequestTarget) *Url {
	page, ok := target.(*BookmarkablePageTarget)
	if !ok || page.PageMapName != "" || !m.Pages.Has(page.PageClass) {
		return nil
	}

	u, _ := QueryCodec{}.EncodeParameters(page.Parameters)
	u.PrependSegments(m.Namespace, BookmarkableSegment, page.PageClass)
	return u
}

// ListenerMapper encodes listener invocations as <namespace>/listener/<interface>/<component path>?<params>.
type ListenerMapper struct {
	Namespace string
}

var _ Mapper = &ListenerMapper{}

func NewListenerMapper(namespace string) *ListenerMapper {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &ListenerMapper{Namespace: namespace}
}

func (m *ListenerMapper) matches(u *Url) bool {
	return len(u.Segments) == 4 && u.StartsWith([]string{m.Namespace, ListenerSegment}) &&
		u.Segments[2] != "" && u.Segments[3] != ""
}

func (m *ListenerMapper) MapRequest(_ *RequestContext, request *Request) RequestTarget {
	if !m.matches(request.Url) {
		return nil
	}

	params := PageParameters{}
	params.mergeQuery(request.Url.Query)

	return &ListenerInvocationTarget{
		InterfaceName: request.Url.Segments[2],
		ComponentPath: request.Url.Segments[3],
		Parameters:    params,
	}
}

func (m *ListenerMapper) CompatibilityScore(request *Request) int {
	if m.matches(request.Url) {
		return 3
	}
	return 0
}

func (m *ListenerMapper) MapHandler(_ *RequestContext, target RequestTarget) *Url {
	listener, ok := target.(*ListenerInvocationTarget)
	if !ok || listener.InterfaceName == "" || listener.ComponentPath == "" {
		return nil
	}

	u, _ := QueryCodec{}.EncodeParameters(listener.Parameters)
	u.PrependSegments(m.Namespace, ListenerSegment, listener.InterfaceName, listener.ComponentPath)
	return u
}

// RedirectMapper only encodes. A RedirectTarget holding an application relative Url is rendered as that Url;
// absolute Urls (with a scheme or host) are left to the caller.
type RedirectMapper struct{}

var _ Mapper = RedirectMapper{}

func (RedirectMapper) MapRequest(*RequestContext, *Request) RequestTarget {
	return nil
}

func (RedirectMapper) CompatibilityScore(*Request) int {
	return 0
}

func (RedirectMapper) MapHandler(_ *RequestContext, target RequestTarget) *Url {
	redirect, ok := target.(*RedirectTarget)
	if !ok {
		return nil
	}

	parsed, err := url.Parse(redirect.Url)
	if err != nil || parsed.IsAbs() || parsed.Host != "" || strings.HasPrefix(redirect.Url, "//") {
		return nil
	}

	u, err := ParseUrl(redirect.Url)
	if err != nil {
		return nil
	}
	return u
}
