package overlay

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a scheduled task. It never waits for a running callback and
// is safe to call more than once.
type Cancel func()

// Scheduler runs callbacks on timers
type Scheduler interface {
	// Every runs fn every period until cancelled
	Every(period time.Duration, fn func()) Cancel

	// After runs fn once after d unless cancelled first
	After(d time.Duration, fn func()) Cancel
}

// RealScheduler uses time.Ticker and time.AfterFunc
type RealScheduler struct{}

// Every starts a ticker goroutine. Non-positive periods run every
// millisecond.
func (RealScheduler) Every(period time.Duration, fn func()) Cancel {
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}
}

// After wraps time.AfterFunc
func (RealScheduler) After(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualScheduler is a deterministic Scheduler driven by Advance
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks map[int]*manualTask
}

type manualTask struct {
	id     int
	next   time.Duration
	period time.Duration // zero for one-shot
	fn     func()
}

// NewManualScheduler creates a scheduler at time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]*manualTask)}
}

// Every registers a repeating task
func (s *ManualScheduler) Every(period time.Duration, fn func()) Cancel {
	if period <= 0 {
		period = time.Millisecond
	}
	return s.add(period, period, fn)
}

// After registers a one-shot task
func (s *ManualScheduler) After(d time.Duration, fn func()) Cancel {
	if d < 0 {
		d = 0
	}
	return s.add(d, 0, fn)
}

func (s *ManualScheduler) add(delay, period time.Duration, fn func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	s.tasks[id] = &manualTask{id: id, next: s.now + delay, period: period, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tasks, id)
	}
}

// Advance moves the clock forward by d, firing due tasks in time order.
// Callbacks run on the caller's goroutine without the scheduler lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		t := s.nextDue(target)
		if t == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = t.next
		if t.period > 0 {
			t.next += t.period
		} else {
			delete(s.tasks, t.id)
		}
		fn := t.fn
		s.mu.Unlock()

		fn()
	}
}

func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	due := make([]*manualTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.next <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].next != due[j].next {
			return due[i].next < due[j].next
		}
		return due[i].id < due[j].id
	})
	return due[0]
}

// Pending returns the number of live tasks
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Ensure both implementations satisfy Scheduler
var (
	_ Scheduler = RealScheduler{}
	_ Scheduler = (*ManualScheduler)(nil)
)
