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
	"strings"

	"golang.org/x/text/language"
)

// LocaleFirstMapper wraps another Mapper and expects the first Url segment to name a locale.
//
// Decoding strips the locale segment, stores the locale on the session and hands the shortened request to the
// wrapped mapper. Encoding lets the wrapped mapper produce a Url and prepends the session locale to it, unless that
// locale is undetermined or not accepted. Mapping.Localize combines it with the unprefixed chain so Urls without a
// locale segment keep resolving.
type LocaleFirstMapper struct {
	inner     Mapper
	supported []language.Tag
}

var _ Mapper = &LocaleFirstMapper{}

// NewLocaleFirstMapper wraps inner. If supported is empty, every tag x/text/language can parse with an explicit base
// language is accepted as a locale segment.
func NewLocaleFirstMapper(inner Mapper, supported ...language.Tag) *LocaleFirstMapper {
	return &LocaleFirstMapper{
		inner:     inner,
		supported: supported,
	}
}

// ParseLocale interprets a Url segment as a locale. Both "de-CH" and "de_CH" are accepted.
func ParseLocale(segment string) (language.Tag, bool) {
	if segment == "" {
		return language.Und, false
	}

	tag, err := language.Parse(strings.ReplaceAll(segment, "_", "-"))
	if err != nil || tag == language.Und {
		return language.Und, false
	}

	return tag, true
}

// localeOf returns the locale named by the first segment of u, if it is an accepted locale.
func (m *LocaleFirstMapper) localeOf(u *Url) (language.Tag, bool) {
	if len(u.Segments) == 0 {
		return language.Und, false
	}

	tag, ok := ParseLocale(u.Segments[0])
	if !ok || !m.accepts(tag) {
		return language.Und, false
	}

	return tag, true
}

func (m *LocaleFirstMapper) accepts(tag language.Tag) bool {
	if tag == language.Und {
		return false
	}

	if len(m.supported) == 0 {
		_, confidence := tag.Base()
		return confidence == language.Exact
	}

	for _, supported := range m.supported {
		if supported == tag {
			return true
		}
	}

	return false
}

func (m *LocaleFirstMapper) strip(request *Request) *Request {
	stripped := request.Url.Clone()
	stripped.RemoveLeadingSegments(1)
	return request.WithUrl(stripped)
}

func (m *LocaleFirstMapper) MapRequest(rc *RequestContext, request *Request) RequestTarget {
	locale, ok := m.localeOf(request.Url)
	if !ok {
		return nil
	}

	target := m.inner.MapRequest(rc, m.strip(request))
	if target != nil {
		rc.Session().SetLocale(locale)
	}
	return target
}

// CompatibilityScore is one more than the wrapped mapper's score for the stripped request, so a localized Url
// outranks an unprefixed reading of the same Url.
func (m *LocaleFirstMapper) CompatibilityScore(request *Request) int {
	if _, ok := m.localeOf(request.Url); !ok {
		return 0
	}
	return m.inner.CompatibilityScore(m.strip(request)) + 1
}

func (m *LocaleFirstMapper) MapHandler(rc *RequestContext, target RequestTarget) *Url {
	u := m.inner.MapHandler(rc, target)
	if u == nil {
		return nil
	}

	if locale := rc.Session().Locale(); m.accepts(locale) {
		u.PrependSegments(locale.String())
	}
	return u
}
