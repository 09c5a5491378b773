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
	"fmt"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

const DefaultRefreshInterval = time.Minute * 10

// MappingConfig is the configuration of an application's mapping chain.
//
//	mapping:
//	  homePage: Home
//	  namespace: sys
//	  locales: [en, de]
//	  pages: [Article]
//	  resourceVersionPrefix: -ver-
//	  crypto:
//	    secretsFile: /etc/app/url-secrets
//	    refreshInterval: 10m
//	  mounts:
//	    - path: /docs
//	      binding: uri
//	      options:
//	        page: Docs
type MappingConfig struct {
	HomePage              string
	Namespace             string
	Locales               []language.Tag
	Pages                 []string
	ResourceVersionPrefix string
	Crypto                *CryptoConfig
	Mounts                []*MountConfig
}

// CryptoConfig enables Url encryption. Exactly one of Secrets and SecretsFile is used, SecretsFile takes precedence.
type CryptoConfig struct {
	Secrets         []string
	SecretsFile     string
	RefreshInterval time.Duration
}

// Parse parses a configuration map to set all relevant MappingConfig values.
func (config *MappingConfig) Parse(configMap map[interface{}]interface{}) error {
	if homePageInterface, ok := configMap["homePage"]; ok {
		if homePage, ok := homePageInterface.(string); ok {
			config.HomePage = homePage
		} else {
			return errors.New("homePage must be a string")
		}
	} else {
		return errors.New("homePage is required")
	}

	if namespaceInterface, ok := configMap["namespace"]; ok {
		if namespace, ok := namespaceInterface.(string); ok {
			config.Namespace = namespace
		} else {
			return errors.New("namespace must be a string")
		}
	}

	if prefixInterface, ok := configMap["resourceVersionPrefix"]; ok {
		if prefix, ok := prefixInterface.(string); ok {
			config.ResourceVersionPrefix = prefix
		} else {
			return errors.New("resourceVersionPrefix must be a string")
		}
	}

	locales, err := parseStringList(configMap, "locales")
	if err != nil {
		return err
	}
	for i, locale := range locales {
		tag, ok := ParseLocale(locale)
		if !ok {
			return fmt.Errorf("invalid locale [%s] at index [%d]", locale, i)
		}
		config.Locales = append(config.Locales, tag)
	}

	if config.Pages, err = parseStringList(configMap, "pages"); err != nil {
		return err
	}

	if cryptoInterface, ok := configMap["crypto"]; ok {
		if cryptoMap, ok := cryptoInterface.(map[interface{}]interface{}); ok {
			config.Crypto = &CryptoConfig{}
			if err := config.Crypto.Parse(cryptoMap); err != nil {
				return fmt.Errorf("error parsing crypto section: %v", err)
			}
		} else {
			return errors.New("crypto section must be a map if defined")
		}
	}

	if mountsInterface, ok := configMap["mounts"]; ok {
		if mountArrayInterfaces, ok := mountsInterface.([]interface{}); ok {
			for i, mountInterface := range mountArrayInterfaces {
				if mountMap, ok := mountInterface.(map[interface{}]interface{}); ok {
					mount := &MountConfig{}
					if err := mount.Parse(mountMap); err != nil {
						return fmt.Errorf("error parsing mount configuration at index [%d]: %v", i, err)
					}

					config.Mounts = append(config.Mounts, mount)
				} else {
					return fmt.Errorf("error parsing mount configuration at index [%d]: not a map", i)
				}
			}
		} else {
			return errors.New("mounts section must be an array")
		}
	}

	return nil
}

// Validate all MappingConfig values against the bindings available in registry.
func (config *MappingConfig) Validate(registry Registry) error {
	if config.HomePage == "" {
		return errors.New("homePage must not be empty")
	}

	paths := map[string]string{}
	for i, mount := range config.Mounts {
		if err := mount.Validate(); err != nil {
			return fmt.Errorf("invalid mount at index [%d]: %v", i, err)
		}

		factory := registry.Get(mount.Binding())
		if factory == nil {
			return fmt.Errorf("invalid mount at index [%d]: invalid binding %s", i, mount.Binding())
		}

		if err := factory.Validate(mount); err != nil {
			return fmt.Errorf("invalid mount at index [%d]: %v", i, err)
		}

		if existing, ok := paths[mount.Path()]; ok {
			return fmt.Errorf("duplicate mount path [/%s] detected for both bindings [%s] and [%s]", mount.Path(), mount.Binding(), existing)
		}
		paths[mount.Path()] = mount.Binding()
	}

	if config.Crypto != nil {
		if err := config.Crypto.Validate(); err != nil {
			return fmt.Errorf("invalid crypto section: %v", err)
		}
	}

	return nil
}

// Build assembles a Mapping: pages, mounts built by the registry's factories, then the locale and crypto decorators.
func (config *MappingConfig) Build(registry Registry) (*Mapping, error) {
	var caching ResourceCachingStrategy
	if config.ResourceVersionPrefix != "" {
		caching = NewFilenameWithVersionStrategy(config.ResourceVersionPrefix, ContentHashVersion{})
	}

	mapping := NewMapping(config.HomePage, config.Namespace, caching)

	for _, page := range config.Pages {
		if err := mapping.Pages.Add(page); err != nil {
			return nil, err
		}
	}

	for _, mount := range config.Mounts {
		factory := registry.Get(mount.Binding())
		if factory == nil {
			return nil, fmt.Errorf("mount [/%s] has no factory registered for binding %s", mount.Path(), mount.Binding())
		}

		strategy, err := factory.New(mapping, mount)
		if err != nil {
			return nil, errors.Wrapf(err, "could not build strategy for mount [/%s]", mount.Path())
		}

		if err := mapping.Mount(strategy); err != nil {
			return nil, err
		}
	}

	if len(config.Locales) > 0 {
		mapping.Localize(config.Locales...)
	}

	if config.Crypto != nil {
		encrypter, err := config.Crypto.NewEncrypter()
		if err != nil {
			return nil, err
		}
		mapping.OnClose(encrypter.Close)
		mapping.Decorate(func(inner Mapper) Mapper {
			return NewCryptoMapper(inner, encrypter)
		})
	}

	pfxlog.Logger().Infof("mapping built with %d mounts, home page %s", len(config.Mounts), config.HomePage)

	return mapping, nil
}

// Parse parses the crypto section.
func (config *CryptoConfig) Parse(configMap map[interface{}]interface{}) error {
	config.RefreshInterval = DefaultRefreshInterval

	var err error
	if config.Secrets, err = parseStringList(configMap, "secrets"); err != nil {
		return err
	}

	if fileInterface, ok := configMap["secretsFile"]; ok {
		if file, ok := fileInterface.(string); ok {
			config.SecretsFile = file
		} else {
			return errors.New("secretsFile must be a string")
		}
	}

	if interfaceVal, ok := configMap["refreshInterval"]; ok {
		if intervalStr, ok := interfaceVal.(string); ok {
			if interval, err := time.ParseDuration(intervalStr); err == nil {
				config.RefreshInterval = interval
			} else {
				return fmt.Errorf("could not parse refreshInterval %s as a duration (e.g. 1m): %v", intervalStr, err)
			}
		} else {
			return errors.New("could not use value for refreshInterval, not a string")
		}
	}

	return nil
}

// Validate validates the crypto section.
func (config *CryptoConfig) Validate() error {
	if config.SecretsFile == "" && len(config.Secrets) == 0 {
		return errors.New("either secrets or secretsFile must be specified")
	}

	if config.RefreshInterval <= 0 {
		return fmt.Errorf("value [%s] for refreshInterval too low, must be positive", config.RefreshInterval.String())
	}

	return nil
}

// NewEncrypter creates the Encrypter described by the section. Secrets read from a file are refreshed periodically.
func (config *CryptoConfig) NewEncrypter() (*Encrypter, error) {
	if config.SecretsFile != "" {
		encrypter, err := NewEncrypter(&FileSecretSource{FileName: config.SecretsFile})
		if err != nil {
			return nil, err
		}
		encrypter.RunRefresher(config.RefreshInterval)
		return encrypter, nil
	}

	return NewEncrypter(StaticSecretSource(config.Secrets))
}

// NewMappingFromConfig validates config against registry and builds its Mapping.
func NewMappingFromConfig(config *MappingConfig, registry Registry) (*Mapping, error) {
	if err := config.Validate(registry); err != nil {
		return nil, err
	}
	return config.Build(registry)
}

func parseStringList(configMap map[interface{}]interface{}, key string) ([]string, error) {
	val, ok := configMap[key]
	if !ok {
		return nil, nil
	}

	list, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}

	var result []string
	for i, entry := range list {
		str, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("%s entry at index [%d] must be a string", key, i)
		}
		result = append(result, str)
	}

	return result, nil
}
