package speech

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// callbackTracker records which goroutines are running listener callbacks.
// A flush requested from one of them cannot wait for the dispatcher it is
// blocking.
type callbackTracker struct {
	mu  sync.Mutex
	ids map[uint64]int
}

func (t *callbackTracker) enter() uint64 {
	id := goroutineID()
	t.mu.Lock()
	if t.ids == nil {
		t.ids = make(map[uint64]int)
	}
	t.ids[id]++
	t.mu.Unlock()
	return id
}

func (t *callbackTracker) exit(id uint64) {
	t.mu.Lock()
	if t.ids[id] <= 1 {
		delete(t.ids, id)
	} else {
		t.ids[id]--
	}
	t.mu.Unlock()
}

// inCallback reports whether the calling goroutine is inside a callback.
func (t *callbackTracker) inCallback() bool {
	id := goroutineID()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ids[id] > 0
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the id from the "goroutine N [running]:" stack header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
