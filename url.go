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

	"github.com/pkg/errors"
)

// ErrMalformedUrl is returned by ParseUrl when a path segment or query parameter carries an invalid escape sequence.
var ErrMalformedUrl = errors.New("malformed url")

// QueryParameter is a single name/value pair of a Url query string. Names may repeat.
type QueryParameter struct {
	Name  string
	Value string
}

// Url is an application relative URL: an ordered list of path segments and a multiset of query parameters. Segments
// are stored unescaped.
type Url struct {
	Segments []string
	Query    []QueryParameter
}

// NewUrl creates a Url from unescaped segments.
func NewUrl(segments ...string) *Url {
	return &Url{Segments: append([]string(nil), segments...)}
}

// ParseUrl parses a path with an optional query string. A single leading slash is ignored, so "/a/b" and "a/b" both
// result in the segments [a b]. A trailing slash results in a trailing empty segment.
func ParseUrl(raw string) (*Url, error) {
	result := &Url{}

	path := raw
	query := ""
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		path = raw[:idx]
		query = raw[idx+1:]
	}

	path = strings.TrimPrefix(path, "/")
	if path != "" {
		for _, rawSegment := range strings.Split(path, "/") {
			segment, err := url.PathUnescape(rawSegment)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedUrl, "segment [%s]: %v", rawSegment, err)
			}
			result.Segments = append(result.Segments, segment)
		}
	}

	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			if pair == "" {
				continue
			}

			rawName, rawValue, _ := strings.Cut(pair, "=")

			name, err := url.QueryUnescape(rawName)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedUrl, "query parameter name [%s]: %v", rawName, err)
			}

			value, err := url.QueryUnescape(rawValue)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedUrl, "query parameter value [%s]: %v", rawValue, err)
			}

			result.Query = append(result.Query, QueryParameter{Name: name, Value: value})
		}
	}

	return result, nil
}

// MustParseUrl is ParseUrl for literals known to be valid.
func MustParseUrl(raw string) *Url {
	u, err := ParseUrl(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// Path renders the escaped segments without a leading slash.
func (u *Url) Path() string {
	escaped := make([]string, len(u.Segments))
	for i, segment := range u.Segments {
		escaped[i] = url.PathEscape(segment)
	}
	return strings.Join(escaped, "/")
}

// String renders the Url relative to the application root, i.e. without a leading slash. A leading empty segment
// followed by further segments is kept by writing a leading slash, which ParseUrl strips again. A Url whose only
// segment is empty renders like the root.
func (u *Url) String() string {
	builder := strings.Builder{}
	if len(u.Segments) > 1 && u.Segments[0] == "" {
		builder.WriteByte('/')
	}
	builder.WriteString(u.Path())

	for i, param := range u.Query {
		if i == 0 {
			builder.WriteByte('?')
		} else {
			builder.WriteByte('&')
		}
		builder.WriteString(url.QueryEscape(param.Name))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(param.Value))
	}

	return builder.String()
}

// Clone returns a deep copy.
func (u *Url) Clone() *Url {
	return &Url{
		Segments: append([]string(nil), u.Segments...),
		Query:    append([]QueryParameter(nil), u.Query...),
	}
}

// Equal compares segments in order and query parameters as a multiset.
func (u *Url) Equal(other *Url) bool {
	if u == nil || other == nil {
		return u == other
	}

	if len(u.Segments) != len(other.Segments) || len(u.Query) != len(other.Query) {
		return false
	}

	for i := range u.Segments {
		if u.Segments[i] != other.Segments[i] {
			return false
		}
	}

	counts := map[QueryParameter]int{}
	for _, param := range u.Query {
		counts[param]++
	}
	for _, param := range other.Query {
		counts[param]--
		if counts[param] < 0 {
			return false
		}
	}

	return true
}

// StartsWith reports whether the Url's segments begin with prefix.
func (u *Url) StartsWith(prefix []string) bool {
	if len(prefix) > len(u.Segments) {
		return false
	}
	for i, segment := range prefix {
		if u.Segments[i] != segment {
			return false
		}
	}
	return true
}

// PrependSegments inserts segments at the front.
func (u *Url) PrependSegments(segments ...string) {
	u.Segments = append(append(make([]string, 0, len(segments)+len(u.Segments)), segments...), u.Segments...)
}

// AppendSegments adds segments at the end.
func (u *Url) AppendSegments(segments ...string) {
	u.Segments = append(u.Segments, segments...)
}

// RemoveLeadingSegments drops the first n segments. Removing more segments than present leaves an empty path.
func (u *Url) RemoveLeadingSegments(n int) {
	if n >= len(u.Segments) {
		u.Segments = nil
		return
	}
	u.Segments = append([]string(nil), u.Segments[n:]...)
}

// QueryParameter returns the first value for name.
func (u *Url) QueryParameter(name string) (string, bool) {
	for _, param := range u.Query {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// AddQueryParameter appends a parameter, keeping existing values of the same name.
func (u *Url) AddQueryParameter(name, value string) {
	u.Query = append(u.Query, QueryParameter{Name: name, Value: value})
}

// SetQueryParameter replaces all values of name with value.
func (u *Url) SetQueryParameter(name, value string) {
	u.RemoveQueryParameter(name)
	u.AddQueryParameter(name, value)
}

// RemoveQueryParameter removes all values of name.
func (u *Url) RemoveQueryParameter(name string) {
	kept := u.Query[:0]
	for _, param := range u.Query {
		if param.Name != name {
			kept = append(kept, param)
		}
	}
	u.Query = kept
}

// splitPath turns a slash separated path into segments, ignoring leading and trailing slashes. An empty path has no
// segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
