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

import "net/http"

// Request is the part of an incoming request mappers look at.
type Request struct {
	Url    *Url
	Method string
	Header http.Header
}

// NewRequest creates a GET Request for u.
func NewRequest(u *Url) *Request {
	return &Request{Url: u, Method: http.MethodGet, Header: http.Header{}}
}

// WithUrl returns a copy of the request addressing u instead. Compositing mappers use it to hand a stripped Url to
// the mapper they wrap.
func (r *Request) WithUrl(u *Url) *Request {
	clone := *r
	clone.Url = u
	return &clone
}

// Mapper translates between requests and RequestTargets in both directions.
//
// All three methods treat input they do not recognise as "not mine": MapRequest and MapHandler return nil and
// CompatibilityScore returns 0. They must not panic on foreign or malformed input since URLs come from clients.
type Mapper interface {
	// MapRequest decodes the request into a target.
	MapRequest(rc *RequestContext, request *Request) RequestTarget

	// CompatibilityScore ranks how specifically this mapper claims the request. Higher wins.
	CompatibilityScore(request *Request) int

	// MapHandler encodes a target into a Url relative to the application root.
	MapHandler(rc *RequestContext, target RequestTarget) *Url
}
