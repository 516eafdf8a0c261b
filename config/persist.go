package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/prompteng/ape/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	// Check if file exists before backing up
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Delete oldest backup if exists
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Log deletion failures (but don't fail config save)
		fmt.Printf("⚠️  Failed to delete old backup %s: %v\n", back3, err)
	}

	// Rotate .back2 to .back3
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	// Rotate .back1 to .back2
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	// Copy current to .back1
	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// GetOverridesPath returns the path to the override file written by `ape config set`
func GetOverridesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ape", "ape_overrides.toml")
}

// loadOrInitializeOverrides loads the override file, or creates an empty one if it doesn't exist
func loadOrInitializeOverrides() (map[string]interface{}, string, error) {
	configPath := GetOverridesPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}

	// Ensure ~/.ape directory exists
	apeDir := filepath.Dir(configPath)
	if err := os.MkdirAll(apeDir, 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .ape directory")
	}

	// Try to read existing overrides
	var config map[string]interface{}
	if data, err := os.ReadFile(configPath); err == nil {
		// File exists, parse it
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, "", errors.Wrap(err, "failed to parse overrides")
		}
	} else {
		// File doesn't exist, create empty config
		config = make(map[string]interface{})
	}

	return config, configPath, nil
}

// saveOverrides writes the config to the override file with backup
func saveOverrides(config map[string]interface{}, configPath string) error {
	// Create backup
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	// Marshal to TOML
	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	// Write to file
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write overrides")
	}

	return nil
}

// Set updates a single dotted-key value in the override file.
// Intermediate sections are created as needed, so "ai.openrouter.model"
// works against an empty file.
func Set(key string, value interface{}) error {
	if key == "" {
		return errors.New("config key cannot be empty")
	}

	config, configPath, err := loadOrInitializeOverrides()
	if err != nil {
		return errors.Wrap(err, "failed to load overrides")
	}

	parts := strings.Split(key, ".")
	section := config
	for _, part := range parts[:len(parts)-1] {
		child, ok := section[part].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			section[part] = child
		}
		section = child
	}
	section[parts[len(parts)-1]] = value

	return saveOverrides(config, configPath)
}

// Unset removes a dotted-key value from the override file.
// Removing a key that was never set is not an error.
func Unset(key string) error {
	if key == "" {
		return errors.New("config key cannot be empty")
	}

	config, configPath, err := loadOrInitializeOverrides()
	if err != nil {
		return errors.Wrap(err, "failed to load overrides")
	}

	parts := strings.Split(key, ".")
	section := config
	for _, part := range parts[:len(parts)-1] {
		child, ok := section[part].(map[string]interface{})
		if !ok {
			return nil // Section never existed, nothing to remove
		}
		section = child
	}
	delete(section, parts[len(parts)-1])

	return saveOverrides(config, configPath)
}
