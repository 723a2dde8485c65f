package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides: INTERNHUB_STORE_DSN -> store.dsn.
const EnvPrefix = "INTERNHUB_"

const maxConfigFileSize = 1 << 20

// Load reads the YAML file at path (missing is fine), applies INTERNHUB_*
// environment overrides on top and fills anything unset from Default().
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		case len(b) > maxConfigFileSize:
			return Config{}, fmt.Errorf("config %s is larger than %d bytes", path, maxConfigFileSize)
		default:
			if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	return cfg, nil
}

// envKey maps INTERNHUB_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}
