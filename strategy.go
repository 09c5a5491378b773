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

import "strings"

// CodingStrategy is a bidirectional codec between RequestTargets and the part of a Url below a mount path. Strategies
// are mounted into a MountTable which strips and adds the mount segments.
type CodingStrategy interface {
	// MountPath returns the normalized mount path: no leading or trailing slash.
	MountPath() string

	// Matches reports whether a slash separated request path lies below the mount path.
	Matches(path string) bool

	// MatchesTarget reports whether Encode can be attempted for target.
	MatchesTarget(target RequestTarget) bool

	// Decode reconstructs a target from the path remainder and query. Returns nil if the parameters are not
	// representable by this strategy.
	Decode(rc *RequestContext, params RequestParameters) RequestTarget

	// Encode renders target relative to the mount path. Returns nil if the target is not representable.
	Encode(rc *RequestContext, target RequestTarget) *Url
}

// NormalizeMountPath trims surrounding slashes and whitespace.
func NormalizeMountPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

// mountPoint is the shared mount path handling of the built-in strategies.
type mountPoint struct {
	path     string
	segments []string
}

func newMountPoint(path string) mountPoint {
	path = NormalizeMountPath(path)
	return mountPoint{path: path, segments: splitPath(path)}
}

func (m mountPoint) MountPath() string {
	return m.path
}

func (m mountPoint) Matches(path string) bool {
	return NewUrl(splitPath(path)...).StartsWith(m.segments)
}

// BookmarkableStrategy mounts a single page class. How parameters appear in the Url is decided by its
// ParameterCodec, which makes the URI, indexed, pairs and query string flavours configurations of this one type.
type BookmarkableStrategy struct {
	mountPoint
	PageClass   string
	PageMapName string
	Codec       ParameterCodec
}

var _ CodingStrategy = &BookmarkableStrategy{}

func NewBookmarkableStrategy(mountPath, pageClass, pageMapName string, codec ParameterCodec) *BookmarkableStrategy {
	return &BookmarkableStrategy{
		mountPoint:  newMountPoint(mountPath),
		PageClass:   pageClass,
		PageMapName: pageMapName,
		Codec:       codec,
	}
}

// NewURIStrategy mounts pageClass so that everything below the mount path ends up in the "uri" parameter.
func NewURIStrategy(mountPath, pageClass string) *BookmarkableStrategy {
	return NewBookmarkableStrategy(mountPath, pageClass, "", URICodec{})
}

// NewIndexedStrategy mounts pageClass with positional parameters as path segments.
func NewIndexedStrategy(mountPath, pageClass string) *BookmarkableStrategy {
	return NewBookmarkableStrategy(mountPath, pageClass, "", IndexedCodec{})
}

// NewPairsStrategy mounts pageClass with parameters as key/value segment pairs.
func NewPairsStrategy(mountPath, pageClass string) *BookmarkableStrategy {
	return NewBookmarkableStrategy(mountPath, pageClass, "", PairsCodec{})
}

// NewQueryStrategy mounts pageClass with parameters in the query string.
func NewQueryStrategy(mountPath, pageClass string) *BookmarkableStrategy {
	return NewBookmarkableStrategy(mountPath, pageClass, "", QueryCodec{})
}

func (s *BookmarkableStrategy) MatchesTarget(target RequestTarget) bool {
	if page, ok := target.(*BookmarkablePageTarget); ok {
		return page.PageClass == s.PageClass && page.PageMapName == s.PageMapName
	}
	return false
}

func (s *BookmarkableStrategy) Decode(_ *RequestContext, params RequestParameters) RequestTarget {
	pageParams, ok := s.Codec.DecodeParameters(params)
	if !ok {
		return nil
	}

	return &BookmarkablePageTarget{
		PageClass:   s.PageClass,
		PageMapName: s.PageMapName,
		Parameters:  pageParams,
	}
}

func (s *BookmarkableStrategy) Encode(_ *RequestContext, target RequestTarget) *Url {
	if !s.MatchesTarget(target) {
		return nil
	}

	u, ok := s.Codec.EncodeParameters(target.(*BookmarkablePageTarget).Parameters)
	if !ok {
		return nil
	}
	return u
}
