package wallet

import (
	"context"
	"sync"
)

// CreditNotice tells the external wallet service how much credit a
// customer is owed after ending a subscription. Amount is in the smallest
// currency unit
type CreditNotice struct {
	AddressID    string `json:"addressId"`
	Amount       int64  `json:"amount"`
	DaysRefunded int    `json:"daysRefunded"`
	Reason       string `json:"reason"`
}

// Notifier delivers credit notices to the wallet collaborator. The core
// only computes the amount; crediting happens on the other side
type Notifier interface {
	NotifyCredit(ctx context.Context, notice CreditNotice) error
}

// Recorder is an in-process Notifier that just remembers what it was told.
// It backs development mode and tests where no broker is reachable
type Recorder struct {
	mu      sync.Mutex
	notices []CreditNotice
}

var _ Notifier = &Recorder{}

// NewRecorder returns an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{
		notices: make([]CreditNotice, 0),
	}
}

// NotifyCredit appends the notice to the in-memory log
func (rec *Recorder) NotifyCredit(ctx context.Context, notice CreditNotice) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.notices = append(rec.notices, notice)
	return nil
}

// Notices returns a copy of everything recorded so far
func (rec *Recorder) Notices() []CreditNotice {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	copied := make([]CreditNotice, len(rec.notices))
	copy(copied, rec.notices)
	return copied
}
