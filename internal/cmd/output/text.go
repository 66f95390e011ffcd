package output

import (
	"io"
)

var _ Handler[any] = (*TextHandler[any])(nil)

// DefaultEmptyMessage is written by a TextHandler when there are no results.
const DefaultEmptyMessage = "No items found"

// TextHandler renders items through a Printer.
type TextHandler[T any] struct {
	out     io.Writer
	printer Printer[T]
	empty   string
}

func NewTextHandler[T any](w io.Writer, p Printer[T]) *TextHandler[T] {
	return &TextHandler[T]{
		out:     w,
		printer: p,
		empty:   DefaultEmptyMessage,
	}
}

// WithEmptyMessage sets the line written instead of the header, items and footer when there are no results.
func (h *TextHandler[T]) WithEmptyMessage(msg string) *TextHandler[T] {
	h.empty = msg
	return h
}

// Writer returns the underlying io.Writer where text will be written.
func (h *TextHandler[T]) Writer() io.Writer {
	return h.out
}

func (h *TextHandler[T]) HandleResult(item T) error {
	return h.HandleResults(item)
}

func (h *TextHandler[T]) HandleResults(items ...T) error {
	if len(items) == 0 {
		_, _ = io.WriteString(h.out, h.empty+"\n")
		return nil
	}

	h.printer.Header(h.out, len(items))

	for _, it := range items {
		if err := h.printer.Item(h.out, it); err != nil {
			return err
		}
	}

	h.printer.Footer(h.out, len(items))

	return nil
}

// HandleError returns err unchanged so cobra reports it.
func (h *TextHandler[T]) HandleError(err error) error {
	return err
}
