package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// KeepAlive is how often an idle stream sends a comment line so proxies
// keep the connection open.
var KeepAlive = 25 * time.Second

// ServeHTTP streams bus events as Server-Sent Events (GET /api/events).
// ?types=notice,prompts.changed limits the stream to those event names.
func (b *Bus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	types, err := ParseTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(types...)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(KeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			msg, err := encodeSSE(ev)
			if err != nil {
				continue
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// ParseTypes parses a comma-separated list of event names. An empty list
// means every type.
func ParseTypes(s string) ([]Type, error) {
	var out []Type
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, ok := typeByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown event type %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

func typeByName(name string) (Type, bool) {
	for t := PromptsChanged; t <= Notice; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func encodeSSE(ev Event) ([]byte, error) {
	data := ev.Data
	if data == nil {
		data = map[string]string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload)), nil
}
