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

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// readLine reads one line without its line ending. A final line without a
// newline is returned as is; io.EOF is reported only when nothing was read.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// GetPassword reads a password from the terminal without echo. The
// caller should wipe the result when done.
func GetPassword(prompt string) ([]byte, error) {
	printlnFn(prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}

// GetMultiline reads lines until a line holding a single "." or the end
// of input, and joins them with '\n'.
func GetMultiline(reader *bufio.Reader, prompt string) (string, error) {
	printlnFn(prompt + " (finish with a line containing only '.')")

	var lines []string
	for {
		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
