package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// defaultConfigFile is loaded when present and no --config is given.
const defaultConfigFile = "assertscan.toml"

// fileConfig holds optional defaults loaded from a TOML file. Flags set
// on the command line always win over file values.
type fileConfig struct {
	Input       string `toml:"input"`
	Output      string `toml:"output"`
	Concurrency int    `toml:"concurrency"`
	NoCache     bool   `toml:"no_cache"`
	Redis       string `toml:"redis"`
	MongoURI    string `toml:"mongo_uri"`
}

// loadConfig reads the TOML config at path. An empty path falls back to
// the default file name, which is allowed to be absent; an explicit path
// must exist.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
