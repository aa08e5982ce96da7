package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const fileHeader = `# CowTracker configuration.
# Values here are overridden by environment variables (see README).
`

// WriteStarter writes a config file with the built-in defaults to path.
// Fails if the file already exists so a hand-edited config is never clobbered.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	return os.WriteFile(path, append([]byte(fileHeader), data...), 0644)
}
