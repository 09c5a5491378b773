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
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// BookmarkableStrategyFactory builds a BookmarkableStrategy with a fixed ParameterCodec. The binding is the codec
// name. Options:
//
//	page:    page class, required
//	pageMap: page map name, optional
type BookmarkableStrategyFactory struct {
	Codec ParameterCodec
}

var _ StrategyFactory = &BookmarkableStrategyFactory{}

func (factory *BookmarkableStrategyFactory) Binding() string {
	return factory.Codec.Name()
}

func (factory *BookmarkableStrategyFactory) Validate(config *MountConfig) error {
	if _, err := config.RequiredString("page"); err != nil {
		return err
	}
	if _, err := config.OptionalString("pageMap"); err != nil {
		return err
	}
	return nil
}

func (factory *BookmarkableStrategyFactory) New(_ *Mapping, config *MountConfig) (CodingStrategy, error) {
	if err := factory.Validate(config); err != nil {
		return nil, err
	}

	page, _ := config.RequiredString("page")
	pageMap, _ := config.OptionalString("pageMap")

	return NewBookmarkableStrategy(config.Path(), page, pageMap, factory.Codec), nil
}

// ResourceStrategyFactory builds a ResourceStrategy and registers its resource. Options:
//
//	name:          resource name, required
//	scope:         resource scope, optional
//	file:          file holding the content, required unless content is given
//	content:       inline content
//	contentType:   defaults to the type registered for the name's extension
//	versionPrefix: decorate names with a version, e.g. "-ver-"; no decoration if absent
//	version:       static version; the content hash is used if absent
type ResourceStrategyFactory struct{}

var _ StrategyFactory = &ResourceStrategyFactory{}

func (factory *ResourceStrategyFactory) Binding() string {
	return "resource"
}

func (factory *ResourceStrategyFactory) Validate(config *MountConfig) error {
	if _, err := config.RequiredString("name"); err != nil {
		return err
	}

	for _, key := range []string{"scope", "file", "content", "contentType", "versionPrefix", "version"} {
		if _, err := config.OptionalString(key); err != nil {
			return err
		}
	}

	file, _ := config.OptionalString("file")
	content, _ := config.OptionalString("content")
	if file == "" && content == "" {
		return errors.New("either file or content is required")
	}

	return nil
}

func (factory *ResourceStrategyFactory) New(mapping *Mapping, config *MountConfig) (CodingStrategy, error) {
	if err := factory.Validate(config); err != nil {
		return nil, err
	}

	name, _ := config.RequiredString("name")
	scope, _ := config.OptionalString("scope")
	ref := ResourceReference{Scope: scope, Name: name}

	resource := &Resource{Modified: time.Now()}
	if file, _ := config.OptionalString("file"); file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read resource file [%s]", file)
		}
		resource.Content = content
		if info, err := os.Stat(file); err == nil {
			resource.Modified = info.ModTime()
		}
	} else {
		content, _ := config.OptionalString("content")
		resource.Content = []byte(content)
	}

	resource.ContentType, _ = config.OptionalString("contentType")
	if resource.ContentType == "" {
		resource.ContentType = mime.TypeByExtension(filepath.Ext(name))
	}

	var caching ResourceCachingStrategy
	if prefix, _ := config.OptionalString("versionPrefix"); prefix != "" {
		var versions ResourceVersion = ContentHashVersion{}
		if version, _ := config.OptionalString("version"); version != "" {
			versions = StaticResourceVersion(version)
		}
		caching = NewFilenameWithVersionStrategy(prefix, versions)
	}

	if _, exists := mapping.Resources.Get(ref); !exists {
		if err := mapping.Resources.Add(ref, resource); err != nil {
			return nil, err
		}
	}

	return NewResourceStrategy(config.Path(), ref, caching, mapping.Resources), nil
}
