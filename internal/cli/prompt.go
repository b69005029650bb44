package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDeclined indicates the user did not confirm a destructive operation.
var ErrDeclined = errors.New("operation not confirmed")

// Confirm writes prompt to out and reads one answer from in. Only y or yes,
// in any case, counts as agreement.
func Confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s (yes/no): ", prompt)

	line, err := readLine(in)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readLine reads through the next newline one byte at a time, leaving the
// rest of in for whoever reads it next.
func readLine(in io.Reader) (string, error) {
	var line strings.Builder
	b := make([]byte, 1)
	for {
		n, err := in.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return line.String(), nil
			}
			line.WriteByte(b[0])
		}
		if err != nil {
			return line.String(), err
		}
	}
}

// PrintJSON writes v to out as indented JSON.
func PrintJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
