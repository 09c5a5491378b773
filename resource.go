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
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// ResourceVersionKey holds the version token found in a decorated resource Url.
	ResourceVersionKey = MetaDataKey("xmapper.resource.version")

	// ResourceVersionCurrentKey is true when the version token of the request names the current content.
	ResourceVersionCurrentKey = MetaDataKey("xmapper.resource.version.current")

	DefaultVersionPrefix = "-ver-"

	localeAttribute    = "locale"
	styleAttribute     = "style"
	variationAttribute = "variation"
)

// Resource is the content behind a shared ResourceReference.
type Resource struct {
	Content     []byte
	ContentType string
	Modified    time.Time
}

// ResourceRegistry holds the shared resources of an application keyed by scope and name.
type ResourceRegistry struct {
	resources map[ResourceReference]*Resource
}

func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{resources: map[ResourceReference]*Resource{}}
}

// Add registers resource under ref. Errors if a resource with the same scope and name exists.
func (registry *ResourceRegistry) Add(ref ResourceReference, resource *Resource) error {
	if ref.Name == "" {
		return errors.New("resource name must not be empty")
	}
	if resource == nil {
		return errors.Errorf("resource [%s] is nil", ref)
	}
	if _, ok := registry.resources[ref.key()]; ok {
		return errors.Errorf("resource [%s] already registered", ref)
	}

	logrus.Debugf("adding shared resource: %v", ref)
	registry.resources[ref.key()] = resource
	return nil
}

// Get returns the resource for the scope and name of ref.
func (registry *ResourceRegistry) Get(ref ResourceReference) (*Resource, bool) {
	resource, ok := registry.resources[ref.key()]
	return resource, ok
}

// References returns the registered references sorted by scope and name.
func (registry *ResourceRegistry) References() []ResourceReference {
	result := make([]ResourceReference, 0, len(registry.resources))
	for ref := range registry.resources {
		result = append(result, ref)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}

// ResourceVersion computes the version token of a resource.
type ResourceVersion interface {
	Version(ref ResourceReference, resource *Resource) (string, bool)
}

// StaticResourceVersion gives every resource the same version, typically the application release.
type StaticResourceVersion string

func (v StaticResourceVersion) Version(ResourceReference, *Resource) (string, bool) {
	return string(v), v != ""
}

// ContentHashVersion derives the version from the resource content.
type ContentHashVersion struct{}

func (ContentHashVersion) Version(_ ResourceReference, resource *Resource) (string, bool) {
	if resource == nil {
		return "", false
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(resource.Content)), true
}

// ResourceCachingStrategy adds a version token to resource file names so the Url changes whenever the content does.
type ResourceCachingStrategy interface {
	// Version returns the token DecorateName would add for resource.
	Version(ref ResourceReference, resource *Resource) (string, bool)

	// DecorateName adds the version of resource to name.
	DecorateName(name string, ref ResourceReference, resource *Resource) string

	// UndecorateName removes a version token from name. The token is stored on rc under ResourceVersionKey.
	UndecorateName(rc *RequestContext, name string) string
}

// FilenameWithVersionStrategy turns "script.js" into "script<Prefix><version>.js". Dots in the version are written
// as underscores, a dot after the prefix always starts the extension.
type FilenameWithVersionStrategy struct {
	Prefix   string
	Versions ResourceVersion
}

var _ ResourceCachingStrategy = &FilenameWithVersionStrategy{}

func NewFilenameWithVersionStrategy(prefix string, versions ResourceVersion) *FilenameWithVersionStrategy {
	if prefix == "" {
		prefix = DefaultVersionPrefix
	}
	return &FilenameWithVersionStrategy{Prefix: prefix, Versions: versions}
}

func splitExtension(name string) (string, string) {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[:idx], name[idx:]
	}
	return name, ""
}

func (s *FilenameWithVersionStrategy) Version(ref ResourceReference, resource *Resource) (string, bool) {
	version, ok := s.Versions.Version(ref, resource)
	if !ok || version == "" {
		return "", false
	}
	return strings.ReplaceAll(version, ".", "_"), true
}

func (s *FilenameWithVersionStrategy) DecorateName(name string, ref ResourceReference, resource *Resource) string {
	version, ok := s.Version(ref, resource)
	if !ok {
		return name
	}

	base, extension := splitExtension(name)
	return base + s.Prefix + version + extension
}

func (s *FilenameWithVersionStrategy) UndecorateName(rc *RequestContext, name string) string {
	idx := strings.LastIndex(name, s.Prefix)
	if idx < 0 {
		return name
	}

	version, extension := name[idx+len(s.Prefix):], ""
	if dot := strings.IndexByte(version, '.'); dot >= 0 {
		version, extension = version[:dot], version[dot:]
	}
	if version == "" {
		return name
	}

	if rc != nil {
		rc.SetMetaData(ResourceVersionKey, version)
	}
	return name[:idx] + extension
}

// markCurrentVersion records on rc whether the version token just undecorated names the current content of resource.
func markCurrentVersion(rc *RequestContext, caching ResourceCachingStrategy, ref ResourceReference, resource *Resource) {
	if rc == nil || caching == nil {
		return
	}

	requested, ok := rc.MetaData(ResourceVersionKey).(string)
	if !ok {
		return
	}

	current, ok := caching.Version(ref, resource)
	rc.SetMetaData(ResourceVersionCurrentKey, ok && current == requested)
}

// ResourceStrategy mounts a single shared resource. Segments below the mount path become indexed parameters; the
// last one is subject to the caching strategy, if any.
type ResourceStrategy struct {
	mountPoint
	Reference ResourceReference
	Caching   ResourceCachingStrategy
	Resources *ResourceRegistry
}

var _ CodingStrategy = &ResourceStrategy{}

func NewResourceStrategy(mountPath string, ref ResourceReference, caching ResourceCachingStrategy, resources *ResourceRegistry) *ResourceStrategy {
	return &ResourceStrategy{
		mountPoint: newMountPoint(mountPath),
		Reference:  ref,
		Caching:    caching,
		Resources:  resources,
	}
}

func (s *ResourceStrategy) MatchesTarget(target RequestTarget) bool {
	if resource, ok := target.(*ResourceTarget); ok {
		return resource.Reference.key() == s.Reference.key()
	}
	return false
}

func (s *ResourceStrategy) Decode(rc *RequestContext, params RequestParameters) RequestTarget {
	segments := append([]string(nil), params.Segments...)
	if s.Caching != nil && len(segments) > 0 {
		last := len(segments) - 1
		segments[last] = s.Caching.UndecorateName(rc, segments[last])

		var resource *Resource
		if s.Resources != nil {
			resource, _ = s.Resources.Get(s.Reference)
		}
		markCurrentVersion(rc, s.Caching, s.Reference, resource)
	}

	pageParams, _ := IndexedCodec{}.DecodeParameters(RequestParameters{Segments: segments, Query: params.Query})

	return &ResourceTarget{
		Reference:  s.Reference,
		Attributes: ResourceAttributes{Parameters: pageParams},
	}
}

func (s *ResourceStrategy) Encode(_ *RequestContext, target RequestTarget) *Url {
	if !s.MatchesTarget(target) {
		return nil
	}

	resourceTarget := target.(*ResourceTarget)
	u, ok := IndexedCodec{}.EncodeParameters(resourceTarget.Attributes.Parameters)
	if !ok {
		return nil
	}

	if s.Caching != nil && len(u.Segments) > 0 {
		var resource *Resource
		if s.Resources != nil {
			resource, _ = s.Resources.Get(s.Reference)
		}
		last := len(u.Segments) - 1
		u.Segments[last] = s.Caching.DecorateName(u.Segments[last], s.Reference, resource)
	}

	return u
}

// SharedResourceMapper addresses every registered resource as <namespace>/resource/<scope>/<name>, the name
// decorated by the caching strategy. Locale, style and variation travel as query parameters.
type SharedResourceMapper struct {
	Namespace string
	Resources *ResourceRegistry
	Caching   ResourceCachingStrategy
}

var _ Mapper = &SharedResourceMapper{}

func NewSharedResourceMapper(namespace string, resources *ResourceRegistry, caching ResourceCachingStrategy) *SharedResourceMapper {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &SharedResourceMapper{Namespace: namespace, Resources: resources, Caching: caching}
}

func (m *SharedResourceMapper) prefixMatches(u *Url) bool {
	return len(u.Segments) == 4 && u.StartsWith([]string{m.Namespace, ResourceSegment})
}

func (m *SharedResourceMapper) MapRequest(rc *RequestContext, request *Request) RequestTarget {
	u := request.Url
	if !m.prefixMatches(u) {
		return nil
	}

	name := u.Segments[3]
	if m.Caching != nil {
		name = m.Caching.UndecorateName(rc, name)
	}

	ref := ResourceReference{Scope: u.Segments[2], Name: name}
	resource, ok := m.Resources.Get(ref)
	if !ok {
		return nil
	}
	markCurrentVersion(rc, m.Caching, ref, resource)

	attributes := ResourceAttributes{Parameters: PageParameters{}}
	attributes.Locale, _ = u.QueryParameter(localeAttribute)
	attributes.Style, _ = u.QueryParameter(styleAttribute)
	attributes.Variation, _ = u.QueryParameter(variationAttribute)
	attributes.Parameters.mergeQuery(u.Query, localeAttribute, styleAttribute, variationAttribute)

	ref.Locale = attributes.Locale
	ref.Style = attributes.Style
	ref.Variation = attributes.Variation

	return &ResourceTarget{Reference: ref, Attributes: attributes}
}

func (m *SharedResourceMapper) CompatibilityScore(request *Request) int {
	if m.prefixMatches(request.Url) {
		return 2
	}
	return 0
}

func (m *SharedResourceMapper) MapHandler(_ *RequestContext, target RequestTarget) *Url {
	resourceTarget, ok := target.(*ResourceTarget)
	if !ok {
		return nil
	}

	ref := resourceTarget.Reference
	resource, ok := m.Resources.Get(ref)
	if !ok {
		return nil
	}

	name := ref.Name
	if m.Caching != nil {
		name = m.Caching.DecorateName(name, ref, resource)
	}

	u := NewUrl(m.Namespace, ResourceSegment, ref.Scope, name)

	attributes := resourceTarget.Attributes
	for _, attribute := range []QueryParameter{
		{Name: localeAttribute, Value: firstNonEmpty(attributes.Locale, ref.Locale)},
		{Name: styleAttribute, Value: firstNonEmpty(attributes.Style, ref.Style)},
		{Name: variationAttribute, Value: firstNonEmpty(attributes.Variation, ref.Variation)},
	} {
		if attribute.Value != "" {
			u.AddQueryParameter(attribute.Name, attribute.Value)
		}
	}

	for _, key := range attributes.Parameters.Keys() {
		if contains([]string{localeAttribute, styleAttribute, variationAttribute}, key) {
			continue
		}
		u.AddQueryParameter(key, attributes.Parameters[key])
	}

	return u
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
