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
	"sort"
)

// CompoundMapper is a Mapper that delegates to a list of Mappers.
//
// The two directions select differently. MapRequest asks every mapper for its CompatibilityScore and tries them from
// the highest score down, ties in registration order, until one returns a target. MapHandler uses the first mapper
// in registration order that returns a Url; mappers must therefore be added in priority order.
//
// Mappers are added during application setup. After that the CompoundMapper is read only and safe for concurrent use.
type CompoundMapper struct {
	mappers []Mapper
}

var _ Mapper = &CompoundMapper{}

func NewCompoundMapper(mappers ...Mapper) *CompoundMapper {
	return &CompoundMapper{
		mappers: append([]Mapper(nil), mappers...),
	}
}

// Add appends mapper to the end of the priority list.
func (c *CompoundMapper) Add(mapper Mapper) *CompoundMapper {
	c.mappers = append(c.mappers, mapper)
	return c
}

// Insert places mapper at index in the priority list. Indices past the end append.
func (c *CompoundMapper) Insert(index int, mapper Mapper) *CompoundMapper {
	if index < 0 {
		index = 0
	}
	if index >= len(c.mappers) {
		return c.Add(mapper)
	}

	c.mappers = append(c.mappers[:index], append([]Mapper{mapper}, c.mappers[index:]...)...)
	return c
}

// Remove drops mapper from the list and reports whether it was present.
func (c *CompoundMapper) Remove(mapper Mapper) bool {
	for i, existing := range c.mappers {
		if existing == mapper {
			c.mappers = append(c.mappers[:i:i], c.mappers[i+1:]...)
			return true
		}
	}
	return false
}

// Mappers returns the registered mappers in registration order.
func (c *CompoundMapper) Mappers() []Mapper {
	return append([]Mapper(nil), c.mappers...)
}

type scoredMapper struct {
	mapper Mapper
	score  int
}

// rank returns the mappers ordered by descending score. The sort is stable so equal scores keep registration order.
func (c *CompoundMapper) rank(request *Request) []scoredMapper {
	ranked := make([]scoredMapper, 0, len(c.mappers))
	for _, mapper := range c.mappers {
		ranked = append(ranked, scoredMapper{mapper: mapper, score: mapper.CompatibilityScore(request)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	return ranked
}

func (c *CompoundMapper) MapRequest(rc *RequestContext, request *Request) RequestTarget {
	for _, candidate := range c.rank(request) {
		if target := candidate.mapper.MapRequest(rc, request); target != nil {
			rc.Logger().Debugf("request [%s] mapped by %T (score %d) to %s", request.Url, candidate.mapper, candidate.score, target)
			return target
		}
	}

	return nil
}

// CompatibilityScore is the best score of the registered mappers.
func (c *CompoundMapper) CompatibilityScore(request *Request) int {
	best := 0
	for _, mapper := range c.mappers {
		if score := mapper.CompatibilityScore(request); score > best {
			best = score
		}
	}
	return best
}

func (c *CompoundMapper) MapHandler(rc *RequestContext, target RequestTarget) *Url {
	for _, mapper := range c.mappers {
		if u := mapper.MapHandler(rc, target); u != nil {
			return u
		}
	}
	return nil
}
