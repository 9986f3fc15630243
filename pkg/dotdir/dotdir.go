// Package dotdir locates the .mathai directory that holds config.toml and
// credentials.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Name is the directory name searched for and created.
	Name = ".mathai"

	// HomeEnvVar names a directory used in place of ~/.mathai.
	HomeEnvVar = "MATHAI_HOME"
)

// Resolve returns the absolute path of the .mathai directory and creates it
// when missing. The first match wins:
//
//  1. override
//  2. the nearest .mathai in the working directory or one of its parents,
//     stopping below the home directory
//  3. $MATHAI_HOME
//  4. ~/.mathai
func Resolve(override string) (string, error) {
	dir, err := pick(override)
	if err != nil {
		return "", err
	}

	// 0700: credentials.toml holds session tokens.
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

// File returns the path of name inside the directory Resolve picks.
func File(override, name string) (string, error) {
	dir, err := Resolve(override)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func pick(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	home, homeErr := os.UserHomeDir()

	if cwd, err := os.Getwd(); err == nil {
		if dir, ok := findUp(cwd, home); ok {
			return dir, nil
		}
	}

	if env := os.Getenv(HomeEnvVar); env != "" {
		return env, nil
	}

	if homeErr != nil {
		return "", fmt.Errorf("getting home directory: %w", homeErr)
	}
	return filepath.Join(home, Name), nil
}

// findUp walks from start towards the filesystem root looking for a .mathai
// directory. Reaching home ends the search.
func findUp(start, home string) (string, bool) {
	for dir := start; ; {
		if home != "" && dir == home {
			return "", false
		}

		candidate := filepath.Join(dir, Name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
