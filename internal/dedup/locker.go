package dedup

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fdg312/cityfix/internal/geo"
	"github.com/google/uuid"
)

// Locker serialises work on a set of keys. Lock blocks until every key is
// held or ctx is done; the returned unlock is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

// LockKeys returns the keys guarding duplicate detection for a report of
// reportType at latitude lat: the latitude band of the point and both
// neighbours. Two points within ThresholdMeters of each other are never more
// than one band apart, so their key sets always intersect.
func LockKeys(reportType string, lat float64) []string {
	band := geo.LatitudeBand(lat)
	keys := []string{
		bandKey(reportType, band-1),
		bandKey(reportType, band),
		bandKey(reportType, band+1),
	}
	sort.Strings(keys)
	return keys
}

// ReportKey guards mutations of a single report.
func ReportKey(id uuid.UUID) string {
	return "report:" + id.String()
}

func bandKey(reportType string, band int64) string {
	return fmt.Sprintf("dedup:%s:%d", reportType, band)
}

// normalizeKeys returns a sorted copy without duplicates, which gives every
// caller the same acquisition order.
func normalizeKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}

// LocalLocker is an in-process Locker. Entries are reference counted and
// dropped once nobody holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	acquired := make([]string, 0, len(keys))

	for _, k := range keys {
		if err := l.acquire(ctx, k); err != nil {
			l.releaseAll(acquired)
			return nil, err
		}
		acquired = append(acquired, k)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(acquired) })
	}, nil
}

func (l *LocalLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.unref(key, e)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *LocalLocker) releaseAll(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(keys) - 1; i >= 0; i-- {
		e := l.locks[keys[i]]
		<-e.ch
		l.unref(keys[i], e)
	}
}

func (l *LocalLocker) unref(key string, e *localLock) {
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
