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

/*
Package xmapper translates between request URLs and request targets in both directions.

Basics

A RequestTarget names what a request is for: a bookmarkable page with its parameters, a shared resource, a listener
invocation on a component or a redirect. A Mapper decodes a Request into a RequestTarget (MapRequest) and encodes a
RequestTarget back into a Url (MapHandler). Mappers return nil for anything they do not recognise, so mappers compose.

A CompoundMapper holds an ordered list of mappers. Decoding asks every mapper for its CompatibilityScore and tries them
from the highest score down, ties in registration order, until one resolves the request. Encoding takes the first
mapper that produces a Url.

Mounted pages and resources live in a MountTable. Each mount is a CodingStrategy at a path; the longest mounted path
prefix of a Url wins and the strategy decodes the remainder with a ParameterCodec (uri, indexed, pairs or query).

Wrapping mappers change the Url on the way through: LocaleFirstMapper adds a leading locale segment and keeps the
session locale in sync with it, CryptoMapper replaces the whole Url by a single encrypted segment. Mapping.Localize
places a LocaleFirstMapper next to the plain chain, so Urls without a locale keep working.

Mapping assembles all of the above for an application: mounts first, then custom mappers, the home page and the system
mappers under a reserved namespace. It can be built in code or from a `mapping` configuration section with a
Registry of StrategyFactory bindings.

Serving

Instance, Server and Dispatcher put a Mapping behind http.Server's configured in a `web` section. The Dispatcher
attaches a session to every request, resolves it and serves redirects and resources itself; pages and listener
invocations are handed to the application's TargetHandler.
*/
package xmapper
