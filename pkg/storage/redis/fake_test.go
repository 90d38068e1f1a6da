package redis

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeClient is an in-process keyspace implementing Client. SCAN pages over
// the sorted keyspace with the cursor as an offset, honouring the COUNT
// hint, so multi-page scans are exercised.
type fakeClient struct {
	mu     sync.Mutex
	data   map[string]string
	closed bool

	// failGet makes Get fail with this error
	failGet error

	// delCalls records the number of DEL commands issued
	delCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Scan(_ context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]string, 0, len(f.data))
	for k := range f.data {
		all = append(all, k)
	}
	sort.Strings(all)

	start := int(cursor)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(count)
	if end > len(all) {
		end = len(all)
	}

	var keys []string
	for _, k := range all[start:end] {
		if globMatch(match, k) {
			keys = append(keys, k)
		}
	}

	next := uint64(end)
	if end >= len(all) {
		next = 0
	}
	return redis.NewScanCmdResult(keys, next, nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delCalls++
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func (f *fakeClient) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// globMatch supports the patterns the backend issues: an escaped literal
// followed by a single trailing "*".
func globMatch(pattern, key string) bool {
	var literal strings.Builder
	escaped := false
	for i, r := range pattern {
		switch {
		case escaped:
			literal.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' && i == len(pattern)-1:
			return strings.HasPrefix(key, literal.String())
		default:
			literal.WriteRune(r)
		}
	}
	return key == literal.String()
}

var _ Client = (*fakeClient)(nil)
