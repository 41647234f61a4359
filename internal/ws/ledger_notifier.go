package ws

import (
	"github.com/ignatzorin/payout-ledger/internal/dto"
)

// LedgerNotifier pushes ledger events to every connected console.
type LedgerNotifier struct {
	hub *Hub
}

func NewLedgerNotifier(hub *Hub) *LedgerNotifier {
	return &LedgerNotifier{hub: hub}
}

func (n *LedgerNotifier) PublishLedgerUpdate(event dto.LedgerEvent) error {
	return n.hub.BroadcastAll(dto.LedgerUpdatedEvent, event)
}
