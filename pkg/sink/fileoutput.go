package sink

import (
	"fmt"
	"io"
)

// FileOutput implements Output by writing raw PCM straight through to an
// io.WriteCloser (a file, or stdout piped into something that can play raw
// s16le audio). It exists alongside discordOutput as the non-Discord Output
// a standalone engine instance can drive without a voice connection.
type FileOutput struct {
	w io.WriteCloser
}

// NewFileOutput wraps w as an Output. w is closed by Close.
func NewFileOutput(w io.WriteCloser) *FileOutput {
	return &FileOutput{w: w}
}

// WritePCM writes buffer through unchanged; there is no frame geometry to
// respect outside of Discord's fixed-size Opus frames.
func (f *FileOutput) WritePCM(buffer []byte) error {
	if _, err := f.w.Write(buffer); err != nil {
		return fmt.Errorf("sink: file output write: %w", err)
	}
	return nil
}

// Flush is a no-op; a plain writer has no buffered frame state to discard.
func (f *FileOutput) Flush() error {
	return nil
}

// Close closes the underlying writer.
func (f *FileOutput) Close() error {
	return f.w.Close()
}
