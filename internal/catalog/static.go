package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadStaticDefaults reads the YAML file of dataset fields shared by every
// published dataset (license, methodology, source...).
func LoadStaticDefaults(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset defaults: %w", err)
	}

	defaults := map[string]any{}
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return nil, fmt.Errorf("decode dataset defaults %s: %w", path, err)
	}
	return defaults, nil
}
