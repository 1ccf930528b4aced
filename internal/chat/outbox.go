package chat

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/talkx/talkx-client/internal/state"
)

const (
	// outboxTTL is how long an unacknowledged send stays eligible for
	// retransmission before it expires.
	outboxTTL = 24 * time.Hour

	// outboxMaxItems bounds the persisted queue. When exceeded the
	// oldest items are evicted first (newest-first retention).
	outboxMaxItems = 100

	// maxSendAttempts is the per-item transmission cap. An item that
	// times out this many times is dropped and surfaced as failed.
	maxSendAttempts = 5
)

// Outbox is the durable queue of not-yet-acknowledged outbound sends.
// The bbolt-backed list is the single source of truth: the in-memory
// map and the in-flight set are reconstructed from it on load, and
// every mutation funnels through this type so the two never diverge.
type Outbox struct {
	store  *state.State
	logger *slog.Logger

	mu       sync.Mutex
	items    map[string]state.OutboxItem
	inflight map[string]struct{}
}

// NewOutbox loads the persisted queue, discarding expired items and
// capping the list newest-first. Nothing is in flight after a load:
// in-flight status never survives a restart.
func NewOutbox(store *state.State, logger *slog.Logger) (*Outbox, error) {
	persisted, err := store.AllOutboxItems()
	if err != nil {
		return nil, fmt.Errorf("loading outbox: %w", err)
	}

	o := &Outbox{
		store:    store,
		logger:   logger,
		items:    make(map[string]state.OutboxItem),
		inflight: make(map[string]struct{}),
	}

	now := time.Now()

	kept := make([]state.OutboxItem, 0, len(persisted))

	for id, it := range persisted {
		if it.Expired(now) {
			if err := store.DeleteOutboxItem(id); err != nil {
				logger.Warn("failed to delete expired outbox item",
					slog.String("client_msg_id", id),
					slog.String("error", err.Error()),
				)
			}

			continue
		}

		kept = append(kept, it)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].CreatedAt < kept[j].CreatedAt })

	// Evict oldest beyond the cap.
	for len(kept) > outboxMaxItems {
		evicted := kept[0]
		kept = kept[1:]

		if err := store.DeleteOutboxItem(evicted.ClientMsgID); err != nil {
			logger.Warn("failed to delete evicted outbox item",
				slog.String("client_msg_id", evicted.ClientMsgID),
				slog.String("error", err.Error()),
			)
		}
	}

	for _, it := range kept {
		o.items[it.ClientMsgID] = it
	}

	if len(o.items) > 0 {
		logger.Info("outbox loaded", slog.Int("pending", len(o.items)))
	}

	return o, nil
}

// Enqueue persists an item, replacing any existing item with the same
// clientMsgId, and marks it pending. The caller is responsible for
// triggering a flush attempt afterwards.
func (o *Outbox) Enqueue(it state.OutboxItem) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.PutOutboxItem(it); err != nil {
		return fmt.Errorf("persisting outbox item: %w", err)
	}

	o.items[it.ClientMsgID] = it
	delete(o.inflight, it.ClientMsgID)

	// Enforce the cap after insertion, oldest first. The new item can
	// itself be evicted only if the queue is full of newer items.
	if len(o.items) > outboxMaxItems {
		oldest := ""

		var oldestAt int64

		for id, existing := range o.items {
			if oldest == "" || existing.CreatedAt < oldestAt {
				oldest = id
				oldestAt = existing.CreatedAt
			}
		}

		o.dropLocked(oldest)
		o.logger.Warn("outbox full, evicted oldest item", slog.String("client_msg_id", oldest))
	}

	return nil
}

// Drop removes an item, reporting whether it was present. Used on ack,
// explicit server rejection, expiry, and attempt exhaustion. The return
// value lets callers surface a terminal send result exactly once even
// when an ack and a timeout race for the same item.
func (o *Outbox) Drop(clientMsgID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.dropLocked(clientMsgID)
}

func (o *Outbox) dropLocked(clientMsgID string) bool {
	_, present := o.items[clientMsgID]

	delete(o.items, clientMsgID)
	delete(o.inflight, clientMsgID)

	if err := o.store.DeleteOutboxItem(clientMsgID); err != nil {
		o.logger.Warn("failed to delete outbox item",
			slog.String("client_msg_id", clientMsgID),
			slog.String("error", err.Error()),
		)
	}

	return present
}

// DropAll discards every queued item. Used when a session is fatally
// rejected: the pending sends belong to a session that no longer
// exists.
func (o *Outbox) DropAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id := range o.items {
		o.dropLocked(id)
	}
}

// Get returns the item with the given id, if present.
func (o *Outbox) Get(clientMsgID string) (state.OutboxItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	it, ok := o.items[clientMsgID]

	return it, ok
}

// ExpireDue drops every item whose TTL has elapsed and returns their
// ids so the caller can surface terminal failures for them.
func (o *Outbox) ExpireDue() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()

	var expired []string

	for id, it := range o.items {
		if it.Expired(now) {
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		o.dropLocked(id)
	}

	return expired
}

// Pending returns the items eligible for transmission in creation
// order: not expired and not currently in flight. Expired items found
// along the way are dropped. The order is advisory; once a reconnect
// occurs the server is the ordering authority.
func (o *Outbox) Pending() []state.OutboxItem {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()

	var expired []string

	pending := make([]state.OutboxItem, 0, len(o.items))

	for id, it := range o.items {
		if it.Expired(now) {
			expired = append(expired, id)
			continue
		}

		if _, ok := o.inflight[id]; ok {
			continue
		}

		pending = append(pending, it)
	}

	for _, id := range expired {
		o.logger.Info("dropping expired outbox item", slog.String("client_msg_id", id))
		o.dropLocked(id)
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt < pending[j].CreatedAt })

	return pending
}

// RecordAttempt increments the attempt counter, stamps lastAttemptAt,
// marks the item in flight, and re-persists it.
func (o *Outbox) RecordAttempt(clientMsgID string) (state.OutboxItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	it, ok := o.items[clientMsgID]
	if !ok {
		return state.OutboxItem{}, fmt.Errorf("outbox item %s not found", clientMsgID)
	}

	it.Attempts++
	it.LastAttemptAt = time.Now().UnixMilli()
	o.items[clientMsgID] = it
	o.inflight[clientMsgID] = struct{}{}

	if err := o.store.PutOutboxItem(it); err != nil {
		return it, fmt.Errorf("persisting attempt: %w", err)
	}

	return it, nil
}

// ClearInFlight returns an in-flight item to the pending pool so the
// next flush retransmits it.
func (o *Outbox) ClearInFlight(clientMsgID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.inflight, clientMsgID)
}

// ClearAllInFlight empties the in-flight set. Called when a connection
// is lost or deliberately closed: with the link gone nothing is truly
// in flight, and everything still queued should retransmit after the
// next authentication.
func (o *Outbox) ClearAllInFlight() {
	o.mu.Lock()
	defer o.mu.Unlock()

	clear(o.inflight)
}

// Len returns the number of queued items.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.items)
}
