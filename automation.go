package patchbay

import (
	"context"
	"errors"
	"sort"
	"time"
)

type (
	// Schedule plays automation events in time order against a graph. It is
	// driven either by a sample clock (Advance, for offline rendering) or by
	// the wall clock (Run, for realtime playback). Both run in the control
	// context.
	Schedule struct {
		events []AutomationEvent
		next   int
	}

	// Applier is what a Schedule plays against. *Graph is one; a holder that
	// forwards to whichever graph is current lets automation follow a graph
	// that is rebuilt while the schedule runs.
	Applier interface {
		Apply(ev AutomationEvent) error
	}
)

// NewSchedule copies and sorts events by time. Events with equal times keep
// their order.
func NewSchedule(events []AutomationEvent) *Schedule {
	s := &Schedule{events: make([]AutomationEvent, len(events))}
	copy(s.events, events)
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].Time < s.events[j].Time })
	return s
}

// Advance applies every pending event with Time <= t. Errors of single
// events do not stop the others.
func (s *Schedule) Advance(t float64, g Applier) error {
	var errs []error
	for s.next < len(s.events) && s.events[s.next].Time <= t {
		if err := g.Apply(s.events[s.next]); err != nil {
			errs = append(errs, err)
		}
		s.next++
	}
	return errors.Join(errs...)
}

// NextTime returns the time of the next pending event.
func (s *Schedule) NextTime() (float64, bool) {
	if s.next >= len(s.events) {
		return 0, false
	}
	return s.events[s.next].Time, true
}

// Done reports whether all events have been applied.
func (s *Schedule) Done() bool { return s.next >= len(s.events) }

// Reset rewinds the schedule to the first event.
func (s *Schedule) Reset() { s.next = 0 }

// Run applies the events at their times measured from start, until all are
// applied or ctx is done. Event errors are passed to onError, if not nil.
func (s *Schedule) Run(ctx context.Context, g Applier, start time.Time, onError func(error)) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		next, ok := s.NextTime()
		if !ok {
			return nil
		}
		wait := time.Until(start.Add(time.Duration(next * float64(time.Second))))
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := s.Advance(time.Since(start).Seconds(), g); err != nil && onError != nil {
			onError(err)
		}
	}
}
