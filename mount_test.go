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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func mapUrl(t *testing.T, mapper Mapper, raw string) RequestTarget {
	return mapper.MapRequest(NewRequestContext(nil), NewRequest(MustParseUrl(raw)))
}

func TestMountTable(t *testing.T) {
	t.Run("the longest mount path wins", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewURIStrategy("/docs", "Docs")))
		req.NoError(table.Mount(NewURIStrategy("/docs/api/", "Api")))

		target := mapUrl(t, table, "docs/api/v1")
		req.Empty(cmp.Diff(&BookmarkablePageTarget{PageClass: "Api", Parameters: PageParameters{URIParameter: "v1"}}, target))

		target = mapUrl(t, table, "docs/guide")
		req.Empty(cmp.Diff(&BookmarkablePageTarget{PageClass: "Docs", Parameters: PageParameters{URIParameter: "guide"}}, target))
	})

	t.Run("a mount path only matches whole segments", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewURIStrategy("docs", "Docs")))

		req.Nil(mapUrl(t, table, "docsx/guide"))
		req.Equal(0, table.CompatibilityScore(NewRequest(MustParseUrl("docsx/guide"))))
	})

	t.Run("the score is the number of mount segments", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewURIStrategy("a/b/c", "Deep")))

		req.Equal(3, table.CompatibilityScore(NewRequest(MustParseUrl("a/b/c/d"))))
		req.Equal(0, table.CompatibilityScore(NewRequest(MustParseUrl("a/b"))))
	})

	t.Run("a duplicate mount path is rejected and the first mount kept", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewURIStrategy("docs", "First")))

		err := table.Mount(NewIndexedStrategy("/docs/", "Second"))
		req.Error(err)
		req.True(errors.Is(err, ErrDuplicateMount))

		target := mapUrl(t, table, "docs").(*BookmarkablePageTarget)
		req.Equal("First", target.PageClass)
	})

	t.Run("a path can be mounted again after Unmount", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewURIStrategy("docs", "First")))
		req.True(table.Unmount("/docs"))
		req.False(table.Unmount("/docs"))
		req.NoError(table.Mount(NewURIStrategy("docs", "Second")))
		req.Len(table.Strategies(), 1)
	})

	t.Run("encoding prepends the mount path", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewPairsStrategy("archive", "Archive")))

		u := table.MapHandler(NewRequestContext(nil), &BookmarkablePageTarget{
			PageClass:  "Archive",
			Parameters: PageParameters{"year": "2024"},
		})
		req.NotNil(u)
		req.Equal("archive/year/2024", u.String())
	})

	t.Run("a target no strategy accepts is not encoded", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewPairsStrategy("archive", "Archive")))

		req.Nil(table.MapHandler(NewRequestContext(nil), &BookmarkablePageTarget{PageClass: "Other"}))
		req.Nil(table.MapHandler(NewRequestContext(nil), &BookmarkablePageTarget{PageClass: "Archive", PageMapName: "popup"}))
		req.Nil(table.MapHandler(NewRequestContext(nil), &BookmarkablePageTarget{
			PageClass:  "Archive",
			Parameters: PageParameters{"": "x"},
		}))
	})

	t.Run("strategies decode and encode symmetrically", func(t *testing.T) {
		req := require.New(t)

		table := NewMountTable()
		req.NoError(table.Mount(NewURIStrategy("files", "Files")))
		req.NoError(table.Mount(NewIndexedStrategy("user", "User")))
		req.NoError(table.Mount(NewPairsStrategy("archive", "Archive")))
		req.NoError(table.Mount(NewQueryStrategy("search", "Search")))

		for _, raw := range []string{
			"files/a/b%20c.txt?download=1",
			"user/42/posts",
			"archive/month/05/year/2024",
			"search?q=go",
		} {
			rc := NewRequestContext(nil)
			target := table.MapRequest(rc, NewRequest(MustParseUrl(raw)))
			req.NotNil(target, raw)

			u := table.MapHandler(rc, target)
			req.NotNil(u, raw)
			req.True(u.Equal(MustParseUrl(raw)), "%s != %s", raw, u)
		}
	})
}
