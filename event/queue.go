package event

import (
	"sync"

	"github.com/halpix/viewport/helpers"
	"github.com/halpix/viewport/log2"
)

const DefaultQueueCap = 1024

// Queue is a bounded FIFO between the driver pump (single producer) and
// consumers. When full, new events are dropped and counted; we log one
// warning per overflow burst to keep the pump loop quiet under pressure.
type Queue struct {
	log     *log2.Log
	mu      sync.Mutex
	buf     []Event
	max     int
	dropped uint32
	inBurst bool
}

func NewQueue(log *log2.Log, max int) *Queue {
	if max <= 0 {
		max = DefaultQueueCap
	}
	return &Queue{
		log: log,
		buf: make([]Event, 0, 16),
		max: max,
	}
}

func (self *Queue) Push(e Event) bool {
	ok := false
	helpers.WithLock(&self.mu, func() {
		if len(self.buf) >= self.max {
			self.dropped++
			if !self.inBurst {
				self.inBurst = true
				self.log.Warningf("event queue full max=%d drop=%s", self.max, e.String())
			}
			return
		}
		self.inBurst = false
		self.buf = append(self.buf, e)
		ok = true
	})
	return ok
}

func (self *Queue) Poll() (Event, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.buf) == 0 {
		return Event{}, false
	}
	e := self.buf[0]
	copy(self.buf, self.buf[1:])
	self.buf = self.buf[:len(self.buf)-1]
	return e, true
}

// PopAll drains the queue in one take, cheaper than Poll in a loop.
func (self *Queue) PopAll() []Event {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.buf) == 0 {
		return nil
	}
	out := self.buf
	self.buf = make([]Event, 0, 16)
	return out
}

func (self *Queue) Len() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.buf)
}

func (self *Queue) Dropped() uint32 {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.dropped
}
