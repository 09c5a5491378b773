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
	"bytes"
	"context"
	"net/http"
	"strings"
)

const (
	DefaultSessionCookieName = "xmapper-session"

	versionedCacheControl = "public, max-age=31536000, immutable"
)

// TargetHandler renders the targets the Dispatcher does not serve itself: bookmarkable pages and listener
// invocations. The RequestContext and RequestTarget are also available on the request's context.
type TargetHandler interface {
	ServeTarget(writer http.ResponseWriter, request *http.Request, rc *RequestContext, target RequestTarget)
}

// TargetHandlerFunc adapts a function to a TargetHandler.
type TargetHandlerFunc func(writer http.ResponseWriter, request *http.Request, rc *RequestContext, target RequestTarget)

func (f TargetHandlerFunc) ServeTarget(writer http.ResponseWriter, request *http.Request, rc *RequestContext, target RequestTarget) {
	f(writer, request, rc, target)
}

// Dispatcher is the http.Handler in front of a Mapping. It attaches a session to each request, resolves the request
// Url to a RequestTarget and serves it: redirects and shared resources directly, everything else through Targets.
// Requests that do not resolve go to the default http handler, a 404 unless one is set.
type Dispatcher struct {
	DefaultHttpHandlerProviderImpl
	Mapping    *Mapping
	Sessions   SessionStore
	Targets    TargetHandler
	CookieName string
}

var _ http.Handler = &Dispatcher{}

func NewDispatcher(mapping *Mapping, sessions SessionStore, targets TargetHandler) *Dispatcher {
	return &Dispatcher{
		Mapping:    mapping,
		Sessions:   sessions,
		Targets:    targets,
		CookieName: DefaultSessionCookieName,
	}
}

func (d *Dispatcher) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	rc := NewRequestContext(d.session(writer, request))
	rc.WithLogField("path", request.URL.Path)

	raw := request.URL.EscapedPath()
	if request.URL.RawQuery != "" {
		raw += "?" + request.URL.RawQuery
	}

	u, err := ParseUrl(raw)
	if err != nil {
		rc.Logger().WithError(err).Debug("rejecting malformed url")
		d.notFound(writer, request)
		return
	}

	target, err := d.Mapping.Resolve(rc, &Request{Url: u, Method: request.Method, Header: request.Header})
	if err != nil {
		rc.Logger().Debug(err.Error())
		d.notFound(writer, request)
		return
	}

	ctx := context.WithValue(request.Context(), RequestContextKey, rc)
	ctx = context.WithValue(ctx, TargetContextKey, target)
	request = request.WithContext(ctx)

	switch t := target.(type) {
	case *RedirectTarget:
		location := t.Url
		if !strings.Contains(location, "://") {
			location = "/" + strings.TrimPrefix(location, "/")
		}
		http.Redirect(writer, request, location, http.StatusFound)
	case *ResourceTarget:
		d.serveResource(writer, request, rc, t)
	default:
		if d.Targets == nil {
			d.notFound(writer, request)
			return
		}
		d.Targets.ServeTarget(writer, request, rc, target)
	}
}

// session finds the session named by the session cookie, creating one and setting the cookie when it is missing
// or unknown.
func (d *Dispatcher) session(writer http.ResponseWriter, request *http.Request) Session {
	if d.Sessions == nil {
		return nil
	}

	id := ""
	if cookie, err := request.Cookie(d.CookieName); err == nil {
		id = cookie.Value
	}

	session := d.Sessions.Get(id)
	if session.ID() != id {
		http.SetCookie(writer, &http.Cookie{
			Name:     d.CookieName,
			Value:    session.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return session
}

func (d *Dispatcher) serveResource(writer http.ResponseWriter, request *http.Request, rc *RequestContext, target *ResourceTarget) {
	resource, ok := d.Mapping.Resources.Get(target.Reference)
	if !ok {
		d.notFound(writer, request)
		return
	}

	if resource.ContentType != "" {
		writer.Header().Set("Content-Type", resource.ContentType)
	}

	if current, _ := rc.MetaData(ResourceVersionCurrentKey).(bool); current {
		writer.Header().Set("Cache-Control", versionedCacheControl)
	}

	http.ServeContent(writer, request, target.Reference.Name, resource.Modified, bytes.NewReader(resource.Content))
}

func (d *Dispatcher) notFound(writer http.ResponseWriter, request *http.Request) {
	if handler := d.GetDefaultHttpHandler(); handler != nil {
		handler.ServeHTTP(writer, request)
		return
	}

	handler404(writer, request)
}
