package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/settings"
)

const (
	envUsername = "NEWTBOOT_USERNAME"
	envPassword = "NEWTBOOT_PASSWORD"
	envTopology = "NEWTBOOT_TOPOLOGY"
	envJournal  = "NEWTBOOT_JOURNAL"

	defaultUsername = "admin"
)

// loadEnvFile loads path into the environment without overriding
// variables already set. A missing file is only an error if it was asked
// for explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

// loadSettings returns the user settings, or empty settings if the file
// is unreadable.
func loadSettings() *settings.Settings {
	s, err := settings.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, yellow("warning:"), err)
		return &settings.Settings{}
	}
	return s
}

// firstOf returns the first non-empty value.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// passwordReader reads a password without echo.
type passwordReader func(prompt string) (string, error)

func readPasswordTerminal(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-pass needs a terminal on stdin")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(string(pw), "\r\n"), nil
}

// resolveCredentials applies flag > env > settings > default for the
// username, and flag > env > prompt for the password.
func resolveCredentials(user, pass string, askPass bool, s *settings.Settings, ask passwordReader) (device.Credentials, error) {
	creds := device.Credentials{
		Username: firstOf(user, os.Getenv(envUsername), s.Username, defaultUsername),
		Password: firstOf(pass, os.Getenv(envPassword)),
	}
	if creds.Password == "" && askPass {
		pw, err := ask(fmt.Sprintf("Password for %s: ", creds.Username))
		if err != nil {
			return creds, err
		}
		creds.Password = pw
	}
	if creds.Password == "" {
		return creds, fmt.Errorf("password required: use -p, %s, or --ask-pass", envPassword)
	}
	return creds, nil
}
