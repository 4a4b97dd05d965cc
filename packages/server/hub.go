package server

import (
	"context"
	"encoding/json"

	"go.alis.build/alog"
)

// envelope is a message addressed to a single client
type envelope struct {
	client  *Client
	message []byte
}

// Hub tracks connected clients and fans session changes out to them. all
// client bookkeeping happens on the run goroutine.
type Hub struct {
	session *Session

	clients map[*Client]bool

	broadcast chan []byte

	direct chan envelope

	register chan *Client

	unregister chan *Client

	done chan struct{}
}

func NewHub(session *Session) *Hub {
	return &Hub{
		session:    session,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		direct:     make(chan envelope),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			alog.Infof(ctx, "hub: client registered, %d connected", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				alog.Infof(ctx, "hub: client unregistered, %d connected", len(h.clients))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(ctx, client, message)
			}
		case env := <-h.direct:
			if h.clients[env.client] {
				h.deliver(ctx, env.client, env.message)
			}
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			alog.Infof(ctx, "hub: stopped")
			return nil
		}
	}
}

// deliver drops clients whose send buffer is full
func (h *Hub) deliver(ctx context.Context, client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		alog.Warnf(ctx, "hub: dropping slow client")
		close(client.send)
		delete(h.clients, client)
	}
}

// handle applies one raw request from client and routes the response
func (h *Hub) handle(ctx context.Context, client *Client, raw []byte) {
	var req Request
	var resp Response
	if err := json.Unmarshal(raw, &req); err != nil {
		resp = errorResponse(err)
	} else if resp, err = h.session.Apply(ctx, req); err != nil {
		alog.Warnf(ctx, "hub: %s %s: %v", req.Action, req.Cell, err)
		resp = errorResponse(err)
	}

	message, err := json.Marshal(resp)
	if err != nil {
		alog.Errorf(ctx, "hub: encode response: %v", err)
		resp = errorResponse(err)
		if message, err = json.Marshal(resp); err != nil {
			return
		}
	}
	if resp.broadcast {
		h.send(h.broadcast, message)
		return
	}
	select {
	case h.direct <- envelope{client: client, message: message}:
	case <-h.done:
	}
}

func (h *Hub) send(ch chan []byte, message []byte) {
	select {
	case ch <- message:
	case <-h.done:
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
