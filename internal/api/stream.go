package api

import (
	"encoding/json"
	"net/http"
)

// dataStream writes the line-oriented chat stream: every line is a one-char
// part type, a colon and a JSON value. "0" carries a text fragment, "3" an
// error message and "d" the finish record.
type dataStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newDataStream(w http.ResponseWriter) *dataStream {
	f, _ := w.(http.Flusher)
	return &dataStream{w: w, flusher: f}
}

func (d *dataStream) start() {
	if d.started {
		return
	}
	d.started = true
	h := d.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Vercel-AI-Data-Stream", "v1")
	h.Set("Cache-Control", "no-cache")
	d.w.WriteHeader(http.StatusOK)
}

func (d *dataStream) Started() bool { return d.started }

// Text emits one text fragment.
func (d *dataStream) Text(fragment string) error {
	if fragment == "" {
		return nil
	}
	return d.part('0', fragment)
}

func (d *dataStream) Error(msg string) {
	_ = d.part('3', msg)
}

func (d *dataStream) Finish() {
	_ = d.part('d', map[string]string{"finishReason": "stop"})
}

func (d *dataStream) part(kind byte, v any) error {
	d.start()
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line := make([]byte, 0, len(payload)+3)
	line = append(line, kind, ':')
	line = append(line, payload...)
	line = append(line, '\n')
	if _, err := d.w.Write(line); err != nil {
		return err
	}
	if d.flusher != nil {
		d.flusher.Flush()
	}
	return nil
}
