package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadYAMLFile reads a cluster-style yaml file into a Config. Nested
// mappings are flattened into dotted keys; scalar values are stored as their
// string form.
func LoadYAMLFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	return LoadYAML(data)
}

// LoadYAML parses yaml bytes into a Config.
func LoadYAML(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing yaml config")
	}
	b := NewBuilder()
	if err := flatten("", raw, b); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func flatten(prefix string, raw map[string]interface{}, b *Builder) error {
	for k, v := range raw {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			if err := flatten(key, val, b); err != nil {
				return err
			}
		case nil:
			b.Put(key, "")
		case []interface{}:
			return fmt.Errorf("config key %s: sequences are not supported", key)
		default:
			b.Put(key, fmt.Sprintf("%v", val))
		}
	}
	return nil
}
