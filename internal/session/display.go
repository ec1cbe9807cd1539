package session

import "sync"

// Display receives the recognized text. The session calls SetText with its
// lock held, so implementations must not call back into the Session.
type Display interface {
	SetText(text string)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(text string)

func (f DisplayFunc) SetText(text string) { f(text) }

// TextBox is a Display that remembers the last text it was given.
type TextBox struct {
	mu     sync.Mutex
	text   string
	writes int
}

func (b *TextBox) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.writes++
}

// Text returns the current text.
func (b *TextBox) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Writes counts SetText calls.
func (b *TextBox) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

type multiDisplay []Display

func (m multiDisplay) SetText(text string) {
	for _, d := range m {
		d.SetText(text)
	}
}

// MultiDisplay fans SetText out to every non-nil display in order.
func MultiDisplay(displays ...Display) Display {
	var out multiDisplay
	for _, d := range displays {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}
