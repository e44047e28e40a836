// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package diagnostics exposes the optional live authority-monitor feed and
// debug probe endpoints (SPEC_FULL §3, §5.5). Neither is part of the core
// pipeline. The CLI starts the probe server when --debug-listen is set; it
// does not mount the live feed.
package diagnostics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/allium-project/allium/internal/consensus"
)

// AuthorityStateChange is one authority transitioning between online and
// offline across two consecutive monitor probe rounds.
type AuthorityStateChange struct {
	Authority   string    `json:"authority"`
	WasOnline   bool      `json:"was_online"`
	IsOnline    bool      `json:"is_online"`
	LatencyMS   int64     `json:"latency_ms"`
	ObservedAt  time.Time `json:"observed_at"`
}

// DetectTransitions compares two probe rounds for the same authority set and
// returns every authority whose online/offline state changed. Authorities
// present in only one round are ignored (the monitor rediscovers its
// authority list once per run; mid-run additions are out of scope).
func DetectTransitions(previous, current []consensus.AuthorityProbe, observedAt time.Time) []AuthorityStateChange {
	prevByName := make(map[string]consensus.AuthorityProbe, len(previous))
	for _, p := range previous {
		prevByName[p.Name] = p
	}

	var changes []AuthorityStateChange
	for _, curr := range current {
		prev, ok := prevByName[curr.Name]
		if !ok || prev.Online == curr.Online {
			continue
		}
		changes = append(changes, AuthorityStateChange{
			Authority:  curr.Name,
			WasOnline:  prev.Online,
			IsOnline:   curr.Online,
			LatencyMS:  curr.LatencyMS,
			ObservedAt: observedAt,
		})
	}
	return changes
}

// feedMessage is the wire shape pushed to connected browsers.
type feedMessage struct {
	Type      string                `json:"type"`
	Change    AuthorityStateChange  `json:"change,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
	Error     string                `json:"error,omitempty"`
}

// LiveFeedServer pushes authority state transitions to connected browsers
// over WebSocket. It is push-only: incoming client messages are read only to
// detect disconnects, mirroring the keepalive discipline of a polling-based
// watch wrapped in a socket.
type LiveFeedServer struct {
	events   <-chan AuthorityStateChange
	upgrader websocket.Upgrader
}

// NewLiveFeedServer wraps events for delivery over WebSocket. events is
// typically fed by a goroutine that re-probes authorities on an interval and
// calls DetectTransitions between rounds.
func NewLiveFeedServer(events <-chan AuthorityStateChange) *LiveFeedServer {
	return &LiveFeedServer{
		events: events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the connection and streams authority state
// changes until the client disconnects or the request context is canceled.
func (s *LiveFeedServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("diagnostics livefeed: upgrade error: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("diagnostics livefeed: close error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.watchForDisconnect(conn, cancel)
	s.pump(ctx, conn)
}

// watchForDisconnect drains client reads; a live feed sends no meaningful
// client->server messages, so any read error or close frame just signals
// disconnect.
func (s *LiveFeedServer) watchForDisconnect(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *LiveFeedServer) pump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case change, ok := <-s.events:
			if !ok {
				s.send(conn, feedMessage{Type: "feed_closed", Timestamp: time.Now()})
				return
			}
			s.send(conn, feedMessage{Type: "authority_state_change", Change: change, Timestamp: time.Now()})
		}
	}
}

func (s *LiveFeedServer) send(conn *websocket.Conn, msg feedMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("diagnostics livefeed: write error: %v", err)
	}
}
