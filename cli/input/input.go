package input

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Terminal is a terminal used for input. If `nil`, /dev/tty (or stdin) is used.
var Terminal *term.Terminal

// ReadWriter combines reader and writer.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// ReadPassword reads user password with prompt.
func ReadPassword(prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	pass, err := readSecurePassword(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(pass, "\r\n"), nil
}

// PasswordPrompt returns keystore password prompt text.
func PasswordPrompt(path string) string {
	return fmt.Sprintf("Enter password for %s > ", path)
}
