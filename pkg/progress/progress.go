// Package progress reports pipeline progress to an interchangeable frontend.
//
// The pipeline talks to a Tracker; frontends range from a full terminal UI
// to plain log lines to nothing at all.
package progress

// TaskID identifies a transient per-package task on a Tracker.
type TaskID int64

// Tracker receives progress events from a pipeline run.
//
// Implementations must be safe for concurrent use; the pipeline calls into
// the tracker from many worker goroutines at once.
type Tracker interface {
	// Start sets the total for the overall counter.
	Start(total int)

	// Step advances the overall counter by one finished package.
	Step()

	// Add registers a transient task with a known total and returns its ID.
	Add(name string, total int) TaskID

	// Advance moves a task forward by n units.
	Advance(id TaskID, n int)

	// Remove retires a task. The task's ID must not be reused afterwards.
	Remove(id TaskID)

	// Finish signals that the run is complete and the frontend may stop.
	Finish()
}

// Nop is a Tracker that discards every event.
type Nop struct{}

func (Nop) Start(int)              {}
func (Nop) Step()                  {}
func (Nop) Add(string, int) TaskID { return 0 }
func (Nop) Advance(TaskID, int)    {}
func (Nop) Remove(TaskID)          {}
func (Nop) Finish()                {}
