package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// readInput returns the contents of file, or stdin when file is empty or "-".
func readInput(file string, stdin io.Reader) ([]byte, error) {
	if file != "" && file != "-" {
		return os.ReadFile(file)
	}
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return nil, fmt.Errorf("no input: pass --file or pipe data on stdin")
		}
	}
	return io.ReadAll(stdin)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
