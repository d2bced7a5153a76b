package sse

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/model"
)

// ServeHTTP streams events, optionally filtered by the post query parameter.
func (s *SSEClients) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Register before announcing the connection so that nothing published
	// after the client saw "connected" is missed.
	client := NewClient(model.PostID(r.URL.Query().Get("post")))
	s.Add(client)
	log.Debug().Str("post_id", string(client.PostID)).Msg("SSE client connected")

	fmt.Fprintf(w, "event: connected\ndata: ok\n\n")
	flusher.Flush()

	defer func() {
		s.Delete(client)
		log.Debug().Msg("SSE client disconnected")
	}()

	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			writeEvent(w, event)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event Event) {
	if event.Name != "" {
		fmt.Fprintf(w, "event: %s\n", event.Name)
	}
	for _, line := range strings.Split(event.Data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
