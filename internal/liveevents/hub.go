package liveevents

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/fx"
)

// Module provides the verification event hub.
var Module = fx.Module("liveevents", fx.Provide(NewHub))

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// VerificationEvent is the per-decision payload fanned out to subscribed
// dashboard viewers. Delivery is fire-and-forget; slow subscribers drop.
type VerificationEvent struct {
	SessionID      string  `json:"session_id"`
	TenantID       string  `json:"tenant_id"`
	IsHuman        bool    `json:"is_human"`
	Confidence     float64 `json:"confidence"`
	RiskScore      float64 `json:"risk_score"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	Timestamp      string  `json:"timestamp"`
}

type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []VerificationEvent
	subs   map[uint64]chan VerificationEvent
	nextID uint64
}

type Subscription struct {
	hub      *Hub
	tenantID string
	id       uint64
	ch       chan VerificationEvent
	once     sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(tenantID string, event VerificationEvent) {
	if h == nil {
		return
	}
	id := strings.TrimSpace(tenantID)
	if id == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[id]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan VerificationEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe(tenantID string) (*Subscription, []VerificationEvent, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	id := strings.TrimSpace(tenantID)
	if id == "" {
		return nil, nil, errors.New("invalid_tenant_id")
	}

	stream := h.ensureStream(id)
	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan VerificationEvent)
	}
	subID := stream.nextID
	stream.nextID++
	ch := make(chan VerificationEvent, h.subscriberBuffer)
	stream.subs[subID] = ch
	buffer := append([]VerificationEvent(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:      h,
		tenantID: id,
		id:       subID,
		ch:       ch,
	}, buffer, nil
}

func (h *Hub) ensureStream(tenantID string) *stream {
	h.mu.RLock()
	current := h.streams[tenantID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[tenantID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan VerificationEvent)}
		h.streams[tenantID] = current
	}
	return current
}

func (h *Hub) unsubscribe(tenantID string, id uint64) {
	if h == nil {
		return
	}
	h.mu.RLock()
	stream := h.streams[tenantID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[tenantID]
	if current == stream {
		stream.mu.Lock()
		if len(stream.subs) == 0 {
			delete(h.streams, tenantID)
		}
		stream.mu.Unlock()
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan VerificationEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.tenantID, s.id)
	})
}
