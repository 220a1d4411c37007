package analysis

import "sync"

// Stage is a step of a single analysis invocation
type Stage string

const (
	StagePreparing   Stage = "PREPARING"
	StageCalling     Stage = "CALLING"
	StageNormalizing Stage = "NORMALIZING"
	StageDone        Stage = "DONE"
	StageFailed      Stage = "FAILED"
)

// String returns a human-readable stage description
func (s Stage) String() string {
	switch s {
	case StagePreparing:
		return "Preparing images"
	case StageCalling:
		return "Waiting for model"
	case StageNormalizing:
		return "Parsing response"
	case StageDone:
		return "Complete"
	case StageFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// ProgressUpdate is delivered to the per-call progress callback
type ProgressUpdate struct {
	Stage    Stage
	Strategy string

	// Completed and Total count backend calls; split mode makes one per image plus one
	Completed int
	Total     int

	// Image names the image whose OCR call just finished
	Image string

	// Err is set on StageFailed
	Err error
}

// Fraction returns how far the run has progressed, between 0 and 1
func (u ProgressUpdate) Fraction() float64 {
	switch u.Stage {
	case StageDone:
		return 1
	case StagePreparing, StageFailed:
		return 0
	case StageNormalizing:
		return 0.95
	}
	if u.Total == 0 {
		return 0.1
	}
	return 0.1 + 0.85*float64(u.Completed)/float64(u.Total)
}

// reporter serializes callback invocations; split-mode OCR calls finish concurrently
type reporter struct {
	mu       sync.Mutex
	fn       func(ProgressUpdate)
	strategy string
	done     int
	total    int
}

func newReporter(fn func(ProgressUpdate)) *reporter {
	return &reporter{fn: fn}
}

func (r *reporter) begin(strategy string, total int) {
	r.mu.Lock()
	r.strategy = strategy
	r.total = total
	r.mu.Unlock()
}

func (r *reporter) stage(s Stage, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit(ProgressUpdate{Stage: s, Err: err})
}

func (r *reporter) callDone(image string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	r.emit(ProgressUpdate{Stage: StageCalling, Image: image})
}

// emit must be called with mu held
func (r *reporter) emit(u ProgressUpdate) {
	if r.fn == nil {
		return
	}
	u.Strategy = r.strategy
	u.Completed = r.done
	u.Total = r.total
	r.fn(u)
}
