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

// HomeMapper maps the application root to the home page. Up to MaxIndexed segments are accepted as indexed
// parameters, a negative MaxIndexed accepts any number. The score is always 0 so the home page only wins when
// nothing more specific claims the request.
type HomeMapper struct {
	MaxIndexed int
	strategy   *BookmarkableStrategy
}

var _ Mapper = &HomeMapper{}

func NewHomeMapper(homePageClass string) *HomeMapper {
	return &HomeMapper{
		strategy: NewIndexedStrategy("", homePageClass),
	}
}

// PageClass is the class the root resolves to.
func (m *HomeMapper) PageClass() string {
	return m.strategy.PageClass
}

// WithMaxIndexed sets MaxIndexed and returns the mapper.
func (m *HomeMapper) WithMaxIndexed(maxIndexed int) *HomeMapper {
	m.MaxIndexed = maxIndexed
	return m
}

func (m *HomeMapper) MapRequest(rc *RequestContext, request *Request) RequestTarget {
	if m.MaxIndexed >= 0 && len(request.Url.Segments) > m.MaxIndexed {
		return nil
	}
	return m.strategy.Decode(rc, RequestParameters{
		Segments: append([]string(nil), request.Url.Segments...),
		Query:    append([]QueryParameter(nil), request.Url.Query...),
	})
}

func (m *HomeMapper) CompatibilityScore(*Request) int {
	return 0
}

func (m *HomeMapper) MapHandler(rc *RequestContext, target RequestTarget) *Url {
	u := m.strategy.Encode(rc, target)
	if u == nil || (m.MaxIndexed >= 0 && len(u.Segments) > m.MaxIndexed) {
		return nil
	}
	return u
}
