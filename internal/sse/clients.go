// Package sse streams ledger events to connected clients with Server-Sent Events.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/model"
)

var sseLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

type Event struct {
	Name string
	Data string
}

const clientBuffer = 8

type Client struct {
	Events chan Event
	// PostID filters events; empty receives every post.
	PostID model.PostID
}

func NewClient(postID model.PostID) *Client {
	return &Client{
		Events: make(chan Event, clientBuffer),
		PostID: postID,
	}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Events)
	}
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast never blocks. Clients with a full buffer miss the event.
func (s *SSEClients) Broadcast(postID model.PostID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.PostID != "" && client.PostID != postID {
			continue
		}
		select {
		case client.Events <- event:
		default:
			sseLogger.Debug().Str("post_id", string(postID)).Msg("Dropped event for slow client")
		}
	}
}

// NotifyVersion announces a version that just became current.
func (s *SSEClients) NotifyVersion(v *model.Version) {
	data, err := json.Marshal(struct {
		PostID model.PostID `json:"post_id"`
		model.Summary
	}{v.PostID, v.Summary(v.ID)})
	if err != nil {
		sseLogger.Error().Err(err).Msg("Error encoding version event")
		return
	}
	s.Broadcast(v.PostID, Event{Name: "version", Data: string(data)})
}
