package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gioco-play/easy-i18n/i18n"
	"golang.org/x/term"

	"nunu-cli/pkg/version"
)

// outputHeader writes the tool banner
func outputHeader(w io.Writer) {
	bar := strings.Repeat("#", 60)
	title := "Nunu CLI"
	pad := (60 - len(title)) / 2

	fmt.Fprintf(w, "%s\n", bar)
	fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", pad), title)
	fmt.Fprintf(w, "%sVersion: %s    Time: %s\n", strings.Repeat(" ", 10), "v"+version.Get(), time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%s\n", bar)
}

// isTerminal reports whether f is attached to a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// promptToken reads the API token from the terminal without echo
func promptToken() (string, error) {
	i18n.Fprintf(os.Stderr, "Enter API token: ")
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(token)), nil
}
