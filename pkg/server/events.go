package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wvscan/wvscan/pkg/duration"
	"github.com/wvscan/wvscan/pkg/jsonutil"
)

// handleEvents streams a scan's status and log events as server-sent
// events. The stream ends when the scan reaches a terminal state or the
// client disconnects. A scan that is already terminal gets one final status
// frame and a closed stream; the report endpoints hold the full result.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, apiErr := s.lookup(r)
	if apiErr != nil {
		http.Error(w, apiErr.Err.Message, apiErr.Status)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Tell EventSource how long to wait before retrying if it disconnects.
	fmt.Fprint(w, "retry: 2000\n\n")

	// Subscribe before the initial snapshot so nothing falls in the gap.
	// For a terminal session the subscription is nil and the snapshot is
	// final anyway.
	ch := sess.Subscribe()
	defer sess.Unsubscribe(ch)

	snap := sess.Snapshot()
	snap.Targets = nil
	writeEvent(w, "snapshot", snap)
	flusher.Flush()

	if ch == nil {
		return
	}

	ticker := time.NewTicker(duration.StreamHeartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// Comment frame keeps intermediaries from timing out the
			// connection.
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, string(ev.Kind), ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) {
	data, err := jsonutil.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
