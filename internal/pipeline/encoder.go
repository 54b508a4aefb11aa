package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes events as newline-delimited JSON
type Encoder struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewEncoder returns an encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Encoder{w: bw, enc: enc}
}

// Encode writes ev on its own line and flushes it
func (e *Encoder) Encode(ev Event) error {
	if err := e.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	return e.w.Flush()
}
