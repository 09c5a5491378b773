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
	"strconv"
	"strings"
)

// URIParameter is the reserved parameter URICodec collects the path remainder into.
const URIParameter = "uri"

// RequestParameters is what a CodingStrategy decodes: the path segments left after the mount path was stripped and
// the query parameters of the request.
type RequestParameters struct {
	Segments []string
	Query    []QueryParameter
}

// Path is the remainder joined with slashes, without a leading slash.
func (p RequestParameters) Path() string {
	return strings.Join(p.Segments, "/")
}

// ParameterCodec converts PageParameters to and from the part of a Url below a mount point. Both directions return
// false when the parameters cannot be represented.
type ParameterCodec interface {
	Name() string
	EncodeParameters(params PageParameters) (*Url, bool)
	DecodeParameters(params RequestParameters) (PageParameters, bool)
}

// URICodec keeps the whole path remainder in the reserved "uri" parameter and everything else in the query string.
type URICodec struct{}

var _ ParameterCodec = URICodec{}

func (URICodec) Name() string {
	return "uri"
}

func (URICodec) EncodeParameters(params PageParameters) (*Url, bool) {
	result := &Url{}

	if uri, ok := params[URIParameter]; ok {
		if trimmed := strings.TrimPrefix(uri, "/"); trimmed != "" {
			result.Segments = strings.Split(trimmed, "/")
		}
	}

	for _, key := range params.Keys() {
		if key == URIParameter {
			continue
		}
		value := params[key]
		if url.QueryEscape(value) == "" {
			continue
		}
		result.AddQueryParameter(key, value)
	}

	return result, true
}

func (URICodec) DecodeParameters(params RequestParameters) (PageParameters, bool) {
	result := PageParameters{}

	if remainder := strings.TrimPrefix(params.Path(), "/"); remainder != "" {
		result[URIParameter] = remainder
	}

	result.mergeQuery(params.Query, URIParameter)
	return result, true
}

// IndexedCodec maps the parameters "0", "1", ... onto consecutive path segments. Named parameters, including indices
// after a gap, go into the query string. A lone empty "0" cannot be told apart from no segment and is not encoded.
type IndexedCodec struct{}

var _ ParameterCodec = IndexedCodec{}

func (IndexedCodec) Name() string {
	return "indexed"
}

func (IndexedCodec) EncodeParameters(params PageParameters) (*Url, bool) {
	indexed := params.Indexed()
	if len(indexed) == 1 && indexed[0] == "" {
		return nil, false
	}
	result := NewUrl(indexed...)

	named := params.Clone()
	for i := range indexed {
		delete(named, strconv.Itoa(i))
	}
	for _, key := range named.Keys() {
		result.AddQueryParameter(key, named[key])
	}

	return result, true
}

func (IndexedCodec) DecodeParameters(params RequestParameters) (PageParameters, bool) {
	result := PageParameters{}
	result.SetIndexed(params.Segments...)
	result.mergeQuery(params.Query)
	return result, true
}

// PairsCodec writes every parameter as a key segment followed by a value segment.
type PairsCodec struct{}

var _ ParameterCodec = PairsCodec{}

func (PairsCodec) Name() string {
	return "pairs"
}

func (PairsCodec) EncodeParameters(params PageParameters) (*Url, bool) {
	result := &Url{}
	for _, key := range params.Keys() {
		if key == "" {
			return nil, false
		}
		result.AppendSegments(key, params[key])
	}
	return result, true
}

func (PairsCodec) DecodeParameters(params RequestParameters) (PageParameters, bool) {
	if len(params.Segments)%2 != 0 {
		return nil, false
	}

	result := PageParameters{}
	for i := 0; i < len(params.Segments); i += 2 {
		result[params.Segments[i]] = params.Segments[i+1]
	}
	result.mergeQuery(params.Query)
	return result, true
}

// QueryCodec puts every parameter into the query string. It does not accept extra path segments.
type QueryCodec struct{}

var _ ParameterCodec = QueryCodec{}

func (QueryCodec) Name() string {
	return "query"
}

func (QueryCodec) EncodeParameters(params PageParameters) (*Url, bool) {
	result := &Url{}
	for _, key := range params.Keys() {
		result.AddQueryParameter(key, params[key])
	}
	return result, true
}

func (QueryCodec) DecodeParameters(params RequestParameters) (PageParameters, bool) {
	if len(params.Segments) > 0 {
		return nil, false
	}

	result := PageParameters{}
	result.mergeQuery(params.Query)
	return result, true
}
