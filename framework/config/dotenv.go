package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ReadEnvFile parses path without touching the process environment.
// A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	vals, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return vals, nil
}

// SetEnvValue writes key=value into the .env file at path, creating the file
// if needed, and exports it into the current process.
func SetEnvValue(path, key, value string) error {
	vals, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	vals[key] = value
	if err := godotenv.Write(vals, path); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return os.Setenv(key, value)
}
