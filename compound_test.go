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
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var _ Mapper = (*mockMapper)(nil)

// mockMapper claims every request with a fixed score and resolves it unless told not to.
type mockMapper struct {
	name     string
	score    int
	resolves bool
	encodes  bool
	calls    int
}

func (m *mockMapper) MapRequest(*RequestContext, *Request) RequestTarget {
	m.calls++
	if !m.resolves {
		return nil
	}
	return &BookmarkablePageTarget{PageClass: m.name}
}

func (m *mockMapper) CompatibilityScore(*Request) int {
	return m.score
}

func (m *mockMapper) MapHandler(*RequestContext, RequestTarget) *Url {
	if !m.encodes {
		return nil
	}
	return NewUrl(m.name)
}

func resolvedClass(t *testing.T, mapper Mapper, raw string) string {
	target := mapUrl(t, mapper, raw)
	require.NotNil(t, target)
	return target.(*BookmarkablePageTarget).PageClass
}

func TestCompoundMapper(t *testing.T) {
	t.Run("the highest score wins", func(t *testing.T) {
		req := require.New(t)

		compound := NewCompoundMapper(
			&mockMapper{name: "low", score: 1, resolves: true},
			&mockMapper{name: "high", score: 5, resolves: true},
		)

		req.Equal("high", resolvedClass(t, compound, "any"))
		req.Equal(5, compound.CompatibilityScore(NewRequest(MustParseUrl("any"))))
	})

	t.Run("equal scores keep registration order", func(t *testing.T) {
		req := require.New(t)

		compound := NewCompoundMapper(
			&mockMapper{name: "first", score: 2, resolves: true},
			&mockMapper{name: "second", score: 2, resolves: true},
		)

		req.Equal("first", resolvedClass(t, compound, "any"))
	})

	t.Run("a candidate that does not resolve falls through to the next", func(t *testing.T) {
		req := require.New(t)

		best := &mockMapper{name: "best", score: 9}
		fallback := &mockMapper{name: "fallback", score: 1, resolves: true}
		compound := NewCompoundMapper(best, fallback)

		req.Equal("fallback", resolvedClass(t, compound, "any"))
		req.Equal(1, best.calls)
	})

	t.Run("nothing resolves to nil", func(t *testing.T) {
		req := require.New(t)

		compound := NewCompoundMapper(&mockMapper{name: "a"}, &mockMapper{name: "b"})
		req.Nil(mapUrl(t, compound, "any"))
		req.Nil(NewCompoundMapper().MapRequest(NewRequestContext(nil), NewRequest(MustParseUrl("any"))))
	})

	t.Run("encoding uses the first mapper in registration order", func(t *testing.T) {
		req := require.New(t)

		compound := NewCompoundMapper(
			&mockMapper{name: "silent", score: 9},
			&mockMapper{name: "first", encodes: true},
			&mockMapper{name: "second", score: 9, encodes: true},
		)

		u := compound.MapHandler(NewRequestContext(nil), &BookmarkablePageTarget{PageClass: "x"})
		req.Equal("first", u.String())
	})

	t.Run("Insert and Remove change the priority order", func(t *testing.T) {
		req := require.New(t)

		a := &mockMapper{name: "a", encodes: true}
		b := &mockMapper{name: "b", encodes: true}
		compound := NewCompoundMapper(a)
		compound.Insert(0, b)

		req.Equal([]Mapper{b, a}, compound.Mappers())
		req.Equal("b", compound.MapHandler(NewRequestContext(nil), &RedirectTarget{}).String())

		req.True(compound.Remove(b))
		req.False(compound.Remove(b))
		req.Equal([]Mapper{a}, compound.Mappers())

		compound.Insert(10, b)
		req.Equal([]Mapper{a, b}, compound.Mappers())
	})

	t.Run("a localized home page outranks the plain one for a locale segment", func(t *testing.T) {
		req := require.New(t)

		compound := NewCompoundMapper(
			NewHomeMapper("Plain").WithMaxIndexed(1),
			NewLocaleFirstMapper(NewHomeMapper("Localized"), language.English),
		)

		req.Equal("Localized", resolvedClass(t, compound, "en"))
		req.Equal("Plain", resolvedClass(t, compound, "welcome"))
		req.Equal("Plain", resolvedClass(t, compound, ""))
	})
}

func TestHomeMapper(t *testing.T) {
	t.Run("only the root resolves by default", func(t *testing.T) {
		req := require.New(t)

		home := NewHomeMapper("Home")
		req.Equal("Home", home.PageClass())
		req.Equal("Home", resolvedClass(t, home, "/"))
		req.Nil(mapUrl(t, home, "unknown"))
	})

	t.Run("query parameters are kept", func(t *testing.T) {
		req := require.New(t)

		target := mapUrl(t, NewHomeMapper("Home"), "?tab=news").(*BookmarkablePageTarget)
		req.Equal(PageParameters{"tab": "news"}, target.Parameters)

		u := NewHomeMapper("Home").MapHandler(NewRequestContext(nil), target)
		req.Equal("?tab=news", u.String())
	})

	t.Run("a negative limit accepts any number of segments", func(t *testing.T) {
		req := require.New(t)

		home := NewHomeMapper("Home").WithMaxIndexed(-1)
		target := mapUrl(t, home, "a/b/c").(*BookmarkablePageTarget)
		req.Equal([]string{"a", "b", "c"}, target.Parameters.Indexed())
	})

	t.Run("targets with more positional parameters than allowed are not encoded", func(t *testing.T) {
		req := require.New(t)

		target := &BookmarkablePageTarget{PageClass: "Home", Parameters: PageParameters{"0": "x"}}
		req.Nil(NewHomeMapper("Home").MapHandler(NewRequestContext(nil), target))
		req.Equal("x", NewHomeMapper("Home").WithMaxIndexed(1).MapHandler(NewRequestContext(nil), target).String())
	})
}
