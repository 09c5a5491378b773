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
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFilenameWithVersionStrategy(t *testing.T) {
	t.Run("the version goes before the extension", func(t *testing.T) {
		req := require.New(t)

		caching := NewFilenameWithVersionStrategy("", StaticResourceVersion("42"))
		req.Equal("app-ver-42.js", caching.DecorateName("app.js", ResourceReference{Name: "app.js"}, nil))
		req.Equal("LICENSE-ver-42", caching.DecorateName("LICENSE", ResourceReference{Name: "LICENSE"}, nil))
	})

	t.Run("undecorating stores the version on the request", func(t *testing.T) {
		req := require.New(t)

		caching := NewFilenameWithVersionStrategy("-ver-", ContentHashVersion{})
		rc := NewRequestContext(nil)

		req.Equal("app.min.js", caching.UndecorateName(rc, "app.min-ver-abc.js"))
		req.Equal("abc", rc.MetaData(ResourceVersionKey))
	})

	t.Run("names without a version are left alone", func(t *testing.T) {
		req := require.New(t)

		caching := NewFilenameWithVersionStrategy("-ver-", ContentHashVersion{})
		rc := NewRequestContext(nil)

		req.Equal("app.js", caching.UndecorateName(rc, "app.js"))
		req.Equal("app-ver-.js", caching.UndecorateName(rc, "app-ver-.js"))
		req.Nil(rc.MetaData(ResourceVersionKey))
	})

	t.Run("dotted versions round trip with and without an extension", func(t *testing.T) {
		req := require.New(t)

		caching := NewFilenameWithVersionStrategy("", StaticResourceVersion("1.2"))
		for _, name := range []string{"LICENSE", "app.js", "jquery.min.js", ".htaccess"} {
			decorated := caching.DecorateName(name, ResourceReference{Name: name}, nil)
			req.NotEqual(name, decorated)

			rc := NewRequestContext(nil)
			req.Equal(name, caching.UndecorateName(rc, decorated))
			req.Equal("1_2", rc.MetaData(ResourceVersionKey))
		}

		req.Equal("LICENSE-ver-1_2", caching.DecorateName("LICENSE", ResourceReference{Name: "LICENSE"}, nil))
	})

	t.Run("content hashes change with the content", func(t *testing.T) {
		req := require.New(t)

		v1, ok := ContentHashVersion{}.Version(ResourceReference{}, &Resource{Content: []byte("a")})
		req.True(ok)
		v2, _ := ContentHashVersion{}.Version(ResourceReference{}, &Resource{Content: []byte("b")})

		req.Len(v1, 16)
		req.NotEqual(v1, v2)

		_, ok = ContentHashVersion{}.Version(ResourceReference{}, nil)
		req.False(ok)
	})
}

func TestResourceRegistry(t *testing.T) {
	t.Run("resources are keyed by scope and name", func(t *testing.T) {
		req := require.New(t)

		registry := NewResourceRegistry()
		resource := &Resource{Content: []byte("x")}
		req.NoError(registry.Add(ResourceReference{Scope: "s", Name: "a.css"}, resource))

		found, ok := registry.Get(ResourceReference{Scope: "s", Name: "a.css", Locale: "de"})
		req.True(ok)
		req.Same(resource, found)

		req.Error(registry.Add(ResourceReference{Scope: "s", Name: "a.css", Style: "dark"}, resource))
		req.Error(registry.Add(ResourceReference{Scope: "s"}, resource))
		req.Error(registry.Add(ResourceReference{Scope: "s", Name: "b.css"}, nil))
		req.Equal([]ResourceReference{{Scope: "s", Name: "a.css"}}, registry.References())
	})
}

func TestResourceStrategy(t *testing.T) {
	t.Run("a versioned name decodes to its reference and positional parameters", func(t *testing.T) {
		req := require.New(t)

		ref := ResourceReference{Scope: "test", Name: "test1"}
		table := NewMountTable()
		req.NoError(table.Mount(NewResourceStrategy("test/resource", ref, NewFilenameWithVersionStrategy("-version-", StaticResourceVersion("4711")), nil)))

		rc := NewRequestContext(nil)
		target := table.MapRequest(rc, NewRequest(MustParseUrl("test/resource/test1-version-4711?bla=123")))

		req.Empty(cmp.Diff(&ResourceTarget{
			Reference:  ref,
			Attributes: ResourceAttributes{Parameters: PageParameters{"0": "test1", "bla": "123"}},
		}, target))
		req.Equal("4711", rc.MetaData(ResourceVersionKey))

		u := table.MapHandler(rc, target)
		req.True(u.Equal(MustParseUrl("test/resource/test1-version-4711?bla=123")))
	})

	t.Run("an extensionless name with a release version round trips", func(t *testing.T) {
		req := require.New(t)

		ref := ResourceReference{Name: "LICENSE"}
		table := NewMountTable()
		req.NoError(table.Mount(NewResourceStrategy("files", ref, NewFilenameWithVersionStrategy("", StaticResourceVersion("1.2")), nil)))

		target := &ResourceTarget{Reference: ref, Attributes: ResourceAttributes{Parameters: PageParameters{"0": "LICENSE"}}}
		u := table.MapHandler(NewRequestContext(nil), target)
		req.Equal("files/LICENSE-ver-1_2", u.String())

		rc := NewRequestContext(nil)
		decoded := table.MapRequest(rc, NewRequest(MustParseUrl(u.String())))
		req.Empty(cmp.Diff(target, decoded))
		req.Equal("1_2", rc.MetaData(ResourceVersionKey))
		req.Equal(true, rc.MetaData(ResourceVersionCurrentKey))
	})

	t.Run("only the current version is marked as current", func(t *testing.T) {
		req := require.New(t)

		ref := ResourceReference{Name: "app.js"}
		table := NewMountTable()
		req.NoError(table.Mount(NewResourceStrategy("js", ref, NewFilenameWithVersionStrategy("", StaticResourceVersion("7")), nil)))

		rc := NewRequestContext(nil)
		req.NotNil(table.MapRequest(rc, NewRequest(MustParseUrl("js/app-ver-6.js"))))
		req.Equal("6", rc.MetaData(ResourceVersionKey))
		req.Equal(false, rc.MetaData(ResourceVersionCurrentKey))

		rc = NewRequestContext(nil)
		req.NotNil(table.MapRequest(rc, NewRequest(MustParseUrl("js/app.js"))))
		req.Nil(rc.MetaData(ResourceVersionCurrentKey))
	})

	t.Run("content hash versions come from the registered resource", func(t *testing.T) {
		req := require.New(t)

		resources := NewResourceRegistry()
		ref := ResourceReference{Name: "app.js"}
		resource := &Resource{Content: []byte("console.log(1)")}
		req.NoError(resources.Add(ref, resource))

		strategy := NewResourceStrategy("js", ref, NewFilenameWithVersionStrategy("-ver-", ContentHashVersion{}), resources)
		version, _ := ContentHashVersion{}.Version(ref, resource)

		u := strategy.Encode(NewRequestContext(nil), &ResourceTarget{
			Reference:  ref,
			Attributes: ResourceAttributes{Parameters: PageParameters{"0": "app.js"}},
		})
		req.Equal("app-ver-"+version+".js", u.String())
	})

	t.Run("other resources are not encoded", func(t *testing.T) {
		req := require.New(t)

		strategy := NewResourceStrategy("js", ResourceReference{Name: "app.js"}, nil, nil)
		req.Nil(strategy.Encode(NewRequestContext(nil), &ResourceTarget{Reference: ResourceReference{Name: "other.js"}}))
		req.Nil(strategy.Encode(NewRequestContext(nil), &BookmarkablePageTarget{PageClass: "app.js"}))
	})
}

func TestSharedResourceMapper(t *testing.T) {
	newMapper := func(t *testing.T) (*SharedResourceMapper, *Resource) {
		resources := NewResourceRegistry()
		resource := &Resource{Content: []byte("body{}"), ContentType: "text/css", Modified: time.Now()}
		require.NoError(t, resources.Add(ResourceReference{Scope: "theme", Name: "site.css"}, resource))
		return NewSharedResourceMapper("", resources, NewFilenameWithVersionStrategy("", StaticResourceVersion("7"))), resource
	}

	t.Run("registered resources round trip with their attributes", func(t *testing.T) {
		req := require.New(t)

		mapper, _ := newMapper(t)
		target := &ResourceTarget{
			Reference: ResourceReference{Scope: "theme", Name: "site.css", Locale: "de", Style: "dark"},
			Attributes: ResourceAttributes{
				Locale:     "de",
				Style:      "dark",
				Parameters: PageParameters{"print": "1"},
			},
		}

		u := mapper.MapHandler(NewRequestContext(nil), target)
		req.Equal("sys/resource/theme/site-ver-7.css?locale=de&style=dark&print=1", u.String())

		request := NewRequest(u)
		req.Equal(2, mapper.CompatibilityScore(request))

		rc := NewRequestContext(nil)
		req.Empty(cmp.Diff(target, mapper.MapRequest(rc, request)))
		req.Equal("7", rc.MetaData(ResourceVersionKey))
	})

	t.Run("unknown resources are not recognised", func(t *testing.T) {
		req := require.New(t)

		mapper, _ := newMapper(t)
		req.Nil(mapUrl(t, mapper, "sys/resource/theme/missing-ver-7.css"))
		req.Nil(mapUrl(t, mapper, "sys/resource/site.css"))
		req.Nil(mapper.MapHandler(NewRequestContext(nil), &ResourceTarget{Reference: ResourceReference{Name: "missing"}}))
	})
}
