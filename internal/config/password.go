// Package config provides password resolution for archive authentication.
package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ResolvePassword returns the OPAL password from the first available source:
// the explicit value, the first line of passwordFile, the OPAL_PASSWORD
// environment variable, then an interactive no-echo prompt.
func ResolvePassword(password, passwordFile string) (string, error) {
	if password != "" {
		return password, nil
	}
	if passwordFile != "" {
		return readPasswordFile(passwordFile)
	}
	if env := os.Getenv("OPAL_PASSWORD"); env != "" {
		return env, nil
	}
	return promptPassword()
}

// readPasswordFile returns the first line of the file, trimmed.
func readPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read password file %s: %w", path, err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("password file %s is empty", path)
	}
	return line, nil
}

// promptPassword asks for the password on the terminal without echo.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Enter your OPAL password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("no password entered")
	}
	return password, nil
}
