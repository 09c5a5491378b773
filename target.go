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
	"fmt"
	"sort"
	"strconv"
)

// RequestTarget is what a request resolves to. The set of implementations is closed: BookmarkablePageTarget,
// ResourceTarget, RedirectTarget and ListenerInvocationTarget. Targets are treated as immutable once constructed.
type RequestTarget interface {
	fmt.Stringer
	isRequestTarget()
}

// PageParameters are the named values handed to a page or listener. Indexed values use the keys "0", "1", ...
type PageParameters map[string]string

// Clone returns a copy that may be modified freely. A nil receiver clones to an empty map.
func (p PageParameters) Clone() PageParameters {
	result := make(PageParameters, len(p))
	for k, v := range p {
		result[k] = v
	}
	return result
}

// Keys returns the parameter names sorted lexically.
func (p PageParameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Indexed returns the values stored under "0", "1", ... up to the first gap.
func (p PageParameters) Indexed() []string {
	var result []string
	for i := 0; ; i++ {
		value, ok := p[strconv.Itoa(i)]
		if !ok {
			return result
		}
		result = append(result, value)
	}
}

// SetIndexed stores values under "0", "1", ...
func (p PageParameters) SetIndexed(values ...string) {
	for i, value := range values {
		p[strconv.Itoa(i)] = value
	}
}

// mergeQuery adds query parameters that are not yet present. The first value of a repeated name wins. Names listed
// in reserved are skipped.
func (p PageParameters) mergeQuery(query []QueryParameter, reserved ...string) {
	for _, param := range query {
		if contains(reserved, param.Name) {
			continue
		}
		if _, exists := p[param.Name]; !exists {
			p[param.Name] = param.Value
		}
	}
}

// BookmarkablePageTarget addresses a page class by name along with its parameters.
type BookmarkablePageTarget struct {
	PageClass   string
	PageMapName string
	Parameters  PageParameters
}

func (*BookmarkablePageTarget) isRequestTarget() {}

func (t *BookmarkablePageTarget) String() string {
	return fmt.Sprintf("BookmarkablePage[class=%s, pageMap=%s, params=%v]", t.PageClass, t.PageMapName, t.Parameters)
}

// ResourceReference identifies a shared resource.
type ResourceReference struct {
	Scope     string
	Name      string
	Locale    string
	Style     string
	Variation string
}

func (r ResourceReference) String() string {
	return r.Scope + "/" + r.Name
}

// key identifies the reference independently of locale, style and variation.
func (r ResourceReference) key() ResourceReference {
	return ResourceReference{Scope: r.Scope, Name: r.Name}
}

// ResourceAttributes are per request properties of a resource request.
type ResourceAttributes struct {
	Locale     string
	Style      string
	Variation  string
	Parameters PageParameters
}

// ResourceTarget addresses a shared resource.
type ResourceTarget struct {
	Reference  ResourceReference
	Attributes ResourceAttributes
}

func (*ResourceTarget) isRequestTarget() {}

func (t *ResourceTarget) String() string {
	return fmt.Sprintf("Resource[ref=%s, params=%v]", t.Reference, t.Attributes.Parameters)
}

// RedirectTarget sends the client elsewhere.
type RedirectTarget struct {
	Url string
}

func (*RedirectTarget) isRequestTarget() {}

func (t *RedirectTarget) String() string {
	return "Redirect[" + t.Url + "]"
}

// ListenerInvocationTarget calls a listener interface on a component identified by its path.
type ListenerInvocationTarget struct {
	ComponentPath string
	InterfaceName string
	Parameters    PageParameters
}

func (*ListenerInvocationTarget) isRequestTarget() {}

func (t *ListenerInvocationTarget) String() string {
	return fmt.Sprintf("Listener[path=%s, interface=%s, params=%v]", t.ComponentPath, t.InterfaceName, t.Parameters)
}

// TargetKind names the variant of a RequestTarget, used for logging and metrics labels.
func TargetKind(target RequestTarget) string {
	switch target.(type) {
	case *BookmarkablePageTarget:
		return "page"
	case *ResourceTarget:
		return "resource"
	case *RedirectTarget:
		return "redirect"
	case *ListenerInvocationTarget:
		return "listener"
	case nil:
		return "none"
	default:
		return "unknown"
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
