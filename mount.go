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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateMount is returned when a mount path is registered twice.
var ErrDuplicateMount = errors.New("mount path already registered")

// MountTable routes requests to CodingStrategy instances by mount path. Decoding picks the strategy with the longest
// matching mount path, encoding picks the first strategy in registration order that accepts the target.
//
// Mounts are registered during application setup. The table is not safe for registration concurrent with lookups.
type MountTable struct {
	strategies []CodingStrategy
}

var _ Mapper = &MountTable{}

func NewMountTable() *MountTable {
	return &MountTable{}
}

// Mount registers strategy under its mount path. A path already in use results in ErrDuplicateMount and the
// existing registration is kept; use Unmount first to replace it.
func (table *MountTable) Mount(strategy CodingStrategy) error {
	if strategy == nil {
		return errors.New("cannot mount a nil strategy")
	}

	for _, existing := range table.strategies {
		if existing.MountPath() == strategy.MountPath() {
			return errors.Wrapf(ErrDuplicateMount, "[/%s] is used by both %T and %T", strategy.MountPath(), existing, strategy)
		}
	}

	logrus.Debugf("mounting %T at [/%s]", strategy, strategy.MountPath())
	table.strategies = append(table.strategies, strategy)
	return nil
}

// Unmount removes the strategy registered at path and reports whether there was one.
func (table *MountTable) Unmount(path string) bool {
	path = NormalizeMountPath(path)
	for i, existing := range table.strategies {
		if existing.MountPath() == path {
			table.strategies = append(table.strategies[:i:i], table.strategies[i+1:]...)
			return true
		}
	}
	return false
}

// Strategies returns the registered strategies in registration order.
func (table *MountTable) Strategies() []CodingStrategy {
	return append([]CodingStrategy(nil), table.strategies...)
}

// StrategyFor returns the strategy with the longest mount path covering u, or nil.
func (table *MountTable) StrategyFor(u *Url) CodingStrategy {
	var best CodingStrategy
	bestLen := -1

	path := strings.Join(u.Segments, "/")
	for _, strategy := range table.strategies {
		mountSegments := splitPath(strategy.MountPath())
		if len(mountSegments) > bestLen && u.StartsWith(mountSegments) && strategy.Matches(path) {
			best = strategy
			bestLen = len(mountSegments)
		}
	}

	return best
}

// CompatibilityScore is the number of mount segments of the strategy that would decode the request.
func (table *MountTable) CompatibilityScore(request *Request) int {
	if strategy := table.StrategyFor(request.Url); strategy != nil {
		return len(splitPath(strategy.MountPath()))
	}
	return 0
}

func (table *MountTable) MapRequest(rc *RequestContext, request *Request) RequestTarget {
	strategy := table.StrategyFor(request.Url)
	if strategy == nil {
		return nil
	}

	mountLen := len(splitPath(strategy.MountPath()))
	params := RequestParameters{
		Segments: append([]string(nil), request.Url.Segments[mountLen:]...),
		Query:    append([]QueryParameter(nil), request.Url.Query...),
	}

	return strategy.Decode(rc, params)
}

func (table *MountTable) MapHandler(rc *RequestContext, target RequestTarget) *Url {
	for _, strategy := range table.strategies {
		if !strategy.MatchesTarget(target) {
			continue
		}

		if u := strategy.Encode(rc, target); u != nil {
			u.PrependSegments(splitPath(strategy.MountPath())...)
			return u
		}
	}

	return nil
}
