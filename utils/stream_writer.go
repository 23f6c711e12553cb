package utils

import (
	"encoding/json"
	"net/http"

	"latidos/models"
)

// WriteStreamChunk writes one NDJSON line and flushes it to the client.
func WriteStreamChunk(w http.ResponseWriter, chunk models.StreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}
