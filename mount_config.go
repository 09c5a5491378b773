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

	"github.com/pkg/errors"
)

// MountConfig represents a single mount: a path and the binding of the StrategyFactory that builds its
// CodingStrategy. The options are interpreted by that StrategyFactory, valid keys and values are not defined here.
type MountConfig struct {
	path    string
	binding string
	options map[interface{}]interface{}
}

// Path returns the normalized mount path.
func (mount *MountConfig) Path() string {
	return mount.path
}

// Binding returns the string that identifies the StrategyFactory to use.
func (mount *MountConfig) Binding() string {
	return mount.binding
}

// Options returns the options associated with this mount.
func (mount *MountConfig) Options() map[interface{}]interface{} {
	return mount.options
}

// Parse the configuration map for a MountConfig.
func (mount *MountConfig) Parse(mountConfigMap map[interface{}]interface{}) error {
	if pathInterface, ok := mountConfigMap["path"]; ok {
		if path, ok := pathInterface.(string); ok {
			mount.path = NormalizeMountPath(path)
		} else {
			return errors.New("path must be a string")
		}
	} else {
		return errors.New("path is required")
	}

	if bindingInterface, ok := mountConfigMap["binding"]; ok {
		if binding, ok := bindingInterface.(string); ok {
			mount.binding = binding
		} else {
			return errors.New("binding must be a string")
		}
	} else {
		return errors.New("binding is required")
	}

	if optionsInterface, ok := mountConfigMap["options"]; ok {
		if optionsMap, ok := optionsInterface.(map[interface{}]interface{}); ok {
			mount.options = optionsMap //leave to bindings to interpret further
		} else {
			return errors.New("options if declared must be a map")
		}
	} //no else optional

	return nil
}

// Validate this configuration object.
func (mount *MountConfig) Validate() error {
	if mount.Binding() == "" {
		return errors.New("binding must be specified")
	}

	return nil
}

// OptionalString returns the string option key, "" if absent. Errors if the option is not a string.
func (mount *MountConfig) OptionalString(key string) (string, error) {
	val, ok := mount.options[key]
	if !ok || val == nil {
		return "", nil
	}

	if str, ok := val.(string); ok {
		return str, nil
	}

	return "", fmt.Errorf("option %s for mount [/%s] must be a string", key, mount.path)
}

// RequiredString returns the string option key. Errors if the option is absent, empty or not a string.
func (mount *MountConfig) RequiredString(key string) (string, error) {
	str, err := mount.OptionalString(key)
	if err != nil {
		return "", err
	}

	if str == "" {
		return "", fmt.Errorf("option %s for mount [/%s] is required", key, mount.path)
	}

	return str, nil
}
