package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables holding the wiki credentials.
const (
	EnvUser     = "PACKAGEBOT_USER"
	EnvPassword = "PACKAGEBOT_PASSWORD"
)

// DefaultEnvFile is the dotenv file read when none is configured.
const DefaultEnvFile = ".env"

// LoadEnvFile exports the variables in path into the process environment
// without overriding variables that are already set. A missing file is
// silently ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv fills missing credentials from the environment.
func (c *Config) ApplyEnv() {
	if c.User == "" {
		c.User = os.Getenv(EnvUser)
	}
	if c.Password == "" {
		c.Password = os.Getenv(EnvPassword)
	}
}
