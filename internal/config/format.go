package config

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type format string

const (
	formatJSON format = "json"
	formatYAML format = "yaml"
	formatTOML format = "toml"
)

// formatOf picks the file format from the extension; anything unknown is JSON.
func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

func decode(f format, data []byte, cfg *Config) error {
	switch f {
	case formatYAML:
		return yaml.Unmarshal(data, cfg)
	case formatTOML:
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

func encode(f format, cfg *Config) ([]byte, error) {
	switch f {
	case formatYAML:
		return yaml.Marshal(cfg)
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}
