package ipupdate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from strings like "10s" or
// "1m30s" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// LoadConfigFile reads a partial configuration from path. The file extension
// selects the format: .toml is decoded as TOML; .yaml, .yml, and .json are
// decoded as YAML (JSON is valid YAML). Any other extension is a ConfigError.
func LoadConfigFile(path string) (*FileConfig, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	file := new(FileConfig)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(contents, file); err != nil {
			return nil, configErrorf("error parsing %s as TOML: %v", path, err)
		}
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(contents, file); err != nil {
			return nil, configErrorf("error parsing %s as YAML: %v", path, err)
		}
	case "":
		return nil, configErrorf("config file %s has no extension", path)
	default:
		return nil, configErrorf("unknown extension for config file %s: %s", path, ext)
	}
	return file, nil
}
