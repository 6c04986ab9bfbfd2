package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin is attached to a terminal
func IsInteractive() bool {
	return isTerminal(int(syscall.Stdin))
}

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// PromptConfirm prompts user for yes/no confirmation
func PromptConfirm(label string) (bool, error) {
	fmt.Print(label + " (y/n) ")
	return readConfirm(os.Stdin)
}

func readConfirm(r io.Reader) (bool, error) {
	reader := bufio.NewReader(r)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	response := strings.TrimSpace(strings.ToLower(input))
	return response == "y" || response == "yes", nil
}
