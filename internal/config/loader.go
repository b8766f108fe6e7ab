package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix namespaces ragd environment variables.
const envPrefix = "RAGD_"

// Load loads configuration from a YAML file, then overrides with environment
// variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (RAGD_SERVER_PORT, RAGD_EMBEDDING_API_KEY, ...)
//  2. YAML config file (default ~/.config/ragd/config.yaml)
//  3. Hardcoded defaults
//
// A missing config file is not an error; defaults plus environment apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "ragd", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	// Environment overrides. The transformer maps RAGD_<SECTION>_<FIELD> to
	// section.field, splitting on the first underscore after the prefix so
	// compound field names keep their underscores. The vectorstore backend
	// sub-sections are the only keys nested two levels deep and get split
	// once more:
	//
	//	RAGD_SERVER_PORT              -> server.port
	//	RAGD_EMBEDDING_API_KEY        -> embedding.api_key
	//	RAGD_VECTORSTORE_COLLECTION   -> vectorstore.collection
	//	RAGD_VECTORSTORE_QDRANT_HOST  -> vectorstore.qdrant.host
	//	RAGD_VECTORSTORE_CHROMEM_PATH -> vectorstore.chromem.path
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		section, field := parts[0], parts[1]
		if section == "vectorstore" {
			for _, sub := range []string{"qdrant", "chromem"} {
				if strings.HasPrefix(field, sub+"_") {
					return section + "." + sub + "." + strings.TrimPrefix(field, sub+"_")
				}
			}
		}
		return section + "." + field
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
