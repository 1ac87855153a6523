package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// Replaced in tests.
var writeClipboard = clipboard.WriteAll

func copyToClipboard(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("nothing to copy")
	}
	return writeClipboard(text)
}
