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
	"context"

	"github.com/michaelquigley/pfxlog"
	"github.com/sirupsen/logrus"
)

type ContextKey string

const (
	RequestContextKey = ContextKey("xmapper.RequestContext.ContextKey")
	TargetContextKey  = ContextKey("xmapper.RequestTarget.ContextKey")
	ServerContextKey  = ContextKey("xmapper.Server.ContextKey")
)

// MetaDataKey identifies a request scoped value stored on a RequestContext.
type MetaDataKey string

// RequestContext is handed to every mapper operation. It replaces ambient per-thread state: the session whose locale
// mappers may read or change and request scoped metadata such as the resource version found in a decorated URL.
//
// A RequestContext belongs to a single request and is not safe for concurrent use.
type RequestContext struct {
	session  Session
	metaData map[MetaDataKey]interface{}
	logger   *logrus.Entry
}

// NewRequestContext creates a RequestContext for the given session. A nil session is replaced by a fresh
// MemorySession.
func NewRequestContext(session Session) *RequestContext {
	if session == nil {
		session = NewMemorySession("")
	}
	return &RequestContext{
		session:  session,
		metaData: map[MetaDataKey]interface{}{},
		logger:   pfxlog.Logger().WithField("session", session.ID()),
	}
}

// Session returns the session of the request.
func (rc *RequestContext) Session() Session {
	return rc.session
}

// SetMetaData stores a request scoped value. Setting nil removes the key.
func (rc *RequestContext) SetMetaData(key MetaDataKey, value interface{}) {
	if value == nil {
		delete(rc.metaData, key)
		return
	}
	rc.metaData[key] = value
}

// MetaData returns the value stored under key or nil.
func (rc *RequestContext) MetaData(key MetaDataKey) interface{} {
	return rc.metaData[key]
}

// Logger returns the request logger.
func (rc *RequestContext) Logger() *logrus.Entry {
	return rc.logger
}

// WithLogField adds a field to the request logger.
func (rc *RequestContext) WithLogField(key string, value interface{}) {
	rc.logger = rc.logger.WithField(key, value)
}

// RequestContextFromContext is a utility function to retrieve the *RequestContext the Server created for an
// http.Request during downstream http.Handler processing.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	if val := ctx.Value(RequestContextKey); val != nil {
		if rc, ok := val.(*RequestContext); ok {
			return rc
		}
	}
	return nil
}

// TargetFromContext is a utility function to retrieve the RequestTarget an http.Request resolved to.
func TargetFromContext(ctx context.Context) RequestTarget {
	if val := ctx.Value(TargetContextKey); val != nil {
		if target, ok := val.(RequestTarget); ok {
			return target
		}
	}
	return nil
}

// ServerContextFromRequestContext is a utility function to retrieve a *ServerContext reference from the http.Request
// that provides access to configuration like BindPointConfig and ServerConfig values.
func ServerContextFromRequestContext(ctx context.Context) *ServerContext {
	if val := ctx.Value(ServerContextKey); val != nil {
		if serverContext, ok := val.(*ServerContext); ok {
			return serverContext
		}
	}
	return nil
}
