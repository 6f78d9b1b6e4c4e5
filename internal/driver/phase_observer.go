package driver

import (
	"time"

	"paramgen/internal/observ"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a generation phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// Phase names reported by Generate.
const (
	PhaseTable    = "table"
	PhaseExpand   = "expand"
	PhaseContract = "contract"
	PhaseEmit     = "emit"
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Generate.
type PhaseObserver func(PhaseEvent)

// phases couples the run timer with an optional observer.
type phases struct {
	timer    *observ.Timer
	observer PhaseObserver
}

func (p phases) begin(name string) int {
	if p.observer != nil {
		p.observer(PhaseEvent{Name: name, Status: PhaseStart})
	}
	return p.timer.Begin(name)
}

func (p phases) end(idx int, name, note string) {
	elapsed := p.timer.End(idx, note)
	if p.observer != nil {
		p.observer(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: elapsed})
	}
}
