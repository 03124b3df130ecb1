package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Dashboard serves a minimal spectator UI: a live event stream over
// websocket plus JSON endpoints for stored results. It observes games and
// never influences them.
type Dashboard struct {
	hub   *Hub
	store *GameStore
}

func newDashboard(hub *Hub, store *GameStore) *Dashboard {
	return &Dashboard{hub: hub, store: store}
}

const dashboardPage = `<!DOCTYPE html>
<html>
<head><title>LLM Mafia</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
h1 { color: #c33; }
#events { white-space: pre-wrap; border: 1px solid #333; padding: 1em; height: 30em; overflow-y: scroll; }
.outcome { color: #fc3; }
.game_over { color: #3c3; }
</style>
</head>
<body>
<h1>LLM Mafia</h1>
<div id="events"></div>
<script>
const events = document.getElementById("events");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (msg) => {
  const ev = JSON.parse(msg.data);
  const line = document.createElement("div");
  line.className = ev.kind;
  line.textContent = "[" + ev.game_id.slice(0, 8) + " r" + ev.round + " " + ev.phase + "] " + ev.text;
  events.appendChild(line);
  events.scrollTop = events.scrollHeight;
};
</script>
</body>
</html>`

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardPage))
}

func (d *Dashboard) handleResults(w http.ResponseWriter, r *http.Request) {
	rows, err := d.store.ListResults(100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (d *Dashboard) handleGameLog(w http.ResponseWriter, r *http.Request) {
	gameID := strings.TrimPrefix(r.URL.Path, "/api/games/")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}
	row, err := d.store.GetLog(gameID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, row)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Dashboard: encode response: %v", err)
	}
}

// serve registers the handlers and blocks on ListenAndServe.
func (d *Dashboard) serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", d.handleIndex)
	mux.HandleFunc("/ws", d.hub.handleWebSocket)
	mux.HandleFunc("/api/results", d.handleResults)
	mux.HandleFunc("/api/games/", d.handleGameLog)

	log.Printf("Dashboard listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
