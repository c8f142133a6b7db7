// Package clipboard copies transcriptions to the system clipboard and can
// paste them into the focused window.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Available reports whether a clipboard backend was found (on linux one of
// xclip, xsel or wl-clipboard).
func Available() bool {
	return !cb.Unsupported
}
