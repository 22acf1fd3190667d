package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/seantiz/batchgate/internal/model"
)

// SSE event names.
const (
	eventOutcome = "outcome"
	eventDone    = "done"
)

// handleStreamOutcomes streams a batch's outcomes as server-sent events. A
// finished batch replays its stored outcomes. A running one sends what is
// already stored and then follows the run live, so a late client still
// receives every outcome in index order.
func (s *Server) handleStreamOutcomes(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventStreamsOpen.Inc()
	defer eventStreamsOpen.Dec()

	if model.IsTerminal(b.Status) {
		s.replayOutcomes(w, r, b.ID)
		return
	}

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Subscribe before reading the store so no outcome falls between the two.
	// A topic that closed since the lookup yields a closed channel.
	ch, unsub := s.engine.Broker().Subscribe(b.ID)
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	// sent is the highest index written. Outcomes are persisted before they
	// are published, so any gap in the live sequence can be filled from the
	// store.
	sent := -1
	if !s.sendStored(w, r, b.ID, &sent, -1) {
		return
	}
	flush()

	for {
		select {
		case o, ok := <-ch:
			if !ok {
				if !s.sendStored(w, r, b.ID, &sent, -1) {
					return
				}
				_ = writeSSEEvent(w, eventDone, "stream complete")
				flush()
				return
			}
			if o.Index <= sent {
				continue
			}
			if o.Index > sent+1 && !s.sendStored(w, r, b.ID, &sent, o.Index) {
				return
			}
			if err := writeOutcomeEvent(w, o); err != nil {
				return // client gone
			}
			sent = o.Index
			flush()
		case <-r.Context().Done():
			return
		}
	}
}

// sendStored writes stored outcomes with an index above *sent, and below
// before when before is not negative, advancing *sent. It reports false when
// the stream should stop.
func (s *Server) sendStored(w http.ResponseWriter, r *http.Request, batchID string, sent *int, before int) bool {
	stored, err := s.store.GetOutcomes(r.Context(), batchID)
	if err != nil {
		s.logger.Error("get outcomes for stream", "batch_id", batchID, "error", err)
		return false
	}
	for _, so := range stored {
		o := so.Outcome
		if o.Index <= *sent || (before >= 0 && o.Index >= before) {
			continue
		}
		if err := writeOutcomeEvent(w, o); err != nil {
			return false
		}
		*sent = o.Index
	}
	return true
}

func (s *Server) replayOutcomes(w http.ResponseWriter, r *http.Request, batchID string) {
	stored, err := s.store.GetOutcomes(r.Context(), batchID)
	if err != nil {
		s.logger.Error("get outcomes for replay", "batch_id", batchID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get outcomes")
		return
	}

	w.WriteHeader(http.StatusOK)
	for _, so := range stored {
		if err := writeOutcomeEvent(w, so.Outcome); err != nil {
			return
		}
	}
	_ = writeSSEEvent(w, eventDone, "stream complete")
}

func writeOutcomeEvent(w http.ResponseWriter, o model.Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	return writeSSEEvent(w, eventOutcome, string(data))
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
// data must not contain newlines.
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
