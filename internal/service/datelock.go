package service

import (
	"sync"
	"time"

	"github.com/unionhall/pit-reservations/internal/domain"
)

// dateLock serializes conflict-check-then-insert per calendar date so two
// concurrent admissions for overlapping intervals cannot both succeed. The
// storage layer keeps its own overlap constraint as a second line of
// defense.
type dateLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDateLock() *dateLock {
	return &dateLock{locks: make(map[string]*sync.Mutex)}
}

func (d *dateLock) lock(date time.Time) func() {
	key := date.Format(domain.DateLayout)

	d.mu.Lock()
	m, ok := d.locks[key]
	if !ok {
		m = &sync.Mutex{}
		d.locks[key] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}
