// Package tokenstore persists the Twitch token pair back into the local env file.
// It does a structured read-modify-write through godotenv so only the two token
// keys change; every other key in the file keeps its value.
package tokenstore

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	accessKey  = "TWITCH_ACCESS_TOKEN"
	refreshKey = "TWITCH_REFRESH_TOKEN"
)

// Store rewrites the token keys in a single env file.
type Store struct {
	Path string
}

// Save updates TWITCH_ACCESS_TOKEN and TWITCH_REFRESH_TOKEN in the file at Path.
// A missing file is created with just the token keys.
func (s *Store) Save(access, refresh string) error {
	if s.Path == "" {
		return fmt.Errorf("tokenstore: empty path")
	}
	env, err := godotenv.Read(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("tokenstore: read %s: %w", s.Path, err)
		}
		env = map[string]string{}
	}
	env[accessKey] = access
	env[refreshKey] = refresh
	if err := godotenv.Write(env, s.Path); err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", s.Path, err)
	}
	return nil
}
