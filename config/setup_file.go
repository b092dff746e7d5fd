package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SetupAnswers is the subset of AppConfig collected by the setup wizard.
// Everything else keeps its default.
type SetupAnswers struct {
	Token                string   `yaml:"token"`
	Prefix               string   `yaml:"prefix"`
	OwnerIDs             []string `yaml:"owners,omitempty"`
	SyncCommandsGlobally bool     `yaml:"sync_commands_globally"`
}

// WriteSetupFile writes answers as a config file LoadConfig can read. The file
// holds the bot token, so it is only readable by the owner.
func WriteSetupFile(path string, answers SetupAnswers) error {
	data, err := yaml.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
