package sync

import (
	"embed"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ConfigEnvVar optionally holds a JSON object of overrides, e.g.
// NBSYNC_CONFIG='{"NB_SLUG":"mynation","PAGE_SIZE":"50"}'.
// Keys found there take precedence over plain environment variables.
const ConfigEnvVar = "NBSYNC_CONFIG"

//go:embed config
var embeddedConfigFiles embed.FS

// DefaultEmbeddedConfig is the config compiled into every binary.
var DefaultEmbeddedConfig = EmbeddedConfig{Root: "config", Files: embeddedConfigFiles}

// JSONCompositeEnvVar looks a key up in the JSON object stored in Parent
// first, then falls back to Lookup (os.LookupEnv when nil).
type JSONCompositeEnvVar struct {
	Parent string
	Lookup func(key string) (string, bool)
}

func (c JSONCompositeEnvVar) lookup(key string) (string, bool) {
	if c.Lookup != nil {
		return c.Lookup(key)
	}
	return os.LookupEnv(key)
}

func (c JSONCompositeEnvVar) LookupEnv(child string) (string, bool) {
	if c.Parent != "" {
		s, _ := c.lookup(c.Parent)
		if s != "" {
			m := make(map[string]string)
			err := json.Unmarshal([]byte(s), &m)
			if err == nil {
				if v, exists := m[child]; exists {
					return v, true
				}
			}
		}
	}
	return c.lookup(child)
}

// LoadConfigFromEnvironment loads the embedded defaults and job overlay,
// expanded with the process environment, and validates the result.
func LoadConfigFromEnvironment(job string) (Config, error) {
	mustBeInitialised()
	return LoadConfig(DefaultEmbeddedConfig, job, JSONCompositeEnvVar{Parent: ConfigEnvVar})
}

func LoadConfig(embedded EmbeddedConfig, job string, compev CompositeEnvVar) (Config, error) {
	var result Config

	defaultsFile, err := embedded.MustFindDefaultsConfigFile()
	if err != nil {
		return result, fmt.Errorf("failed to read defaults config file %w", err)
	}

	jobFile, err := embedded.FindJobConfigFile(job)
	if err != nil {
		return result, fmt.Errorf("failed to read job config file %w", err)
	}

	result, err = YAMLConfigUnmarshaler{}.Unmarshal(compev, defaultsFile, jobFile)
	if err != nil {
		return result, fmt.Errorf("failed to load config %w", err)
	}
	result.Job = job

	if err = result.Validate(); err != nil {
		return result, err
	}
	return result, nil
}
