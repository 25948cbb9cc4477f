package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user typed "y" or "yes".
	Accepted bool
	// Cancelled is true if reading the answer failed.
	Cancelled bool
}

// ConfirmDelete asks before deleting ids of entityName. It defaults to "No"
// when the user presses Enter without input.
func ConfirmDelete(writer io.Writer, reader io.Reader, entityName string, ids []string) PromptResult {
	noun := "record"
	if len(ids) != 1 {
		noun = "records"
	}
	_, _ = fmt.Fprintf(writer, "? Delete %d %s %s (%s)? [y/N] ",
		len(ids), entityName, noun, strings.Join(ids, ", "))

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		// EOF without error, e.g. Ctrl+D
		return PromptResult{Accepted: false}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{Accepted: false}
	}
}

// readPassword reads a password without echo from a terminal, or one line
// from reader otherwise.
func readPassword(writer io.Writer, reader io.Reader) (string, error) {
	_, _ = fmt.Fprint(writer, "Password: ")
	if f, ok := reader.(*os.File); ok && isTerminal(f) {
		raw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(writer)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
