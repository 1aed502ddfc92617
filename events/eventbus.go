package events

import (
	"sync"

	"github.com/Siasom1/esg-ledger/core/types"
)

const sealedBuffer = 16

// Sealed announces a block committed to a ledger.
type Sealed struct {
	LedgerID string       `json:"ledger_id"`
	Block    *types.Block `json:"block"`
}

// EventBus fans sealed blocks out to subscribers. Slow subscribers miss
// events instead of blocking the publisher.
type EventBus struct {
	mu         sync.RWMutex
	nextID     uint64
	sealedSubs map[uint64]chan Sealed
}

func NewEventBus() *EventBus {
	return &EventBus{
		sealedSubs: make(map[uint64]chan Sealed),
	}
}

// SubscribeSealed returns a channel of sealed blocks and a function that
// cancels the subscription and closes the channel.
func (b *EventBus) SubscribeSealed() (<-chan Sealed, func()) {
	ch := make(chan Sealed, sealedBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.sealedSubs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.sealedSubs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

func (b *EventBus) PublishSealed(id string, block *types.Block) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Sealed{LedgerID: id, Block: block}
	for _, ch := range b.sealedSubs {
		// non-blocking send
		select {
		case ch <- event:
		default:
		}
	}
}
