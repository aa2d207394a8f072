package collab

import (
	"sync"

	"github.com/atotto/clipboard"
)

// SystemClipboard writes to the OS clipboard (xclip/xsel/wl-copy on Linux,
// pbcopy on macOS).
type SystemClipboard struct{}

// SetString implements Clipboard.
func (SystemClipboard) SetString(text string) error {
	return clipboard.WriteAll(text)
}

// Available reports whether a clipboard utility was found.
func (SystemClipboard) Available() bool {
	return !clipboard.Unsupported
}

// MemoryClipboard keeps the last copied text in memory. Used by the web UI
// when no system clipboard is present, and by tests.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
	n    int
}

// SetString implements Clipboard.
func (c *MemoryClipboard) SetString(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.n++
	return nil
}

// Text returns the last copied text and how many copies were made.
func (c *MemoryClipboard) Text() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.n
}
