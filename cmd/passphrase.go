package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptSecret reads a secret from the terminal without echo.
// Passphrases and identifiers never travel through flags or argv.
func promptSecret(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(raw), nil
}

// promptNewSecret reads a secret twice and verifies both entries match.
func promptNewSecret(prompt string) (string, error) {
	first, err := promptSecret(prompt)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	second, err := promptSecret(prompt + " (again)")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("entries did not match")
	}
	return first, nil
}
