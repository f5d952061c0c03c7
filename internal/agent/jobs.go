package agent

import (
	"sort"
	"sync"
	"time"

	"github.com/Faultbox/provelslice/internal/pipeline"
)

// Status is the lifecycle state of a slice job.
type Status string

const (
	StatusSlicing   Status = "slicing"
	StatusFinishing Status = "finishing"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Job is one background slice.
type Job struct {
	mu        sync.RWMutex
	id        string
	name      string
	status    Status
	progress  float64
	err       string
	result    *pipeline.Result
	createdAt time.Time
	updatedAt time.Time
}

// JobSnapshot is a point-in-time copy of a Job for JSON responses.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	Levels      int       `json:"levels,omitempty"`
	Points      int       `json:"points,omitempty"`
	PrintTime   string    `json:"print_time,omitempty"`
	FeedrateMin float64   `json:"feedrate_min,omitempty"`
	FeedrateMax float64   `json:"feedrate_max,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newJob(id, name string) *Job {
	now := time.Now()
	return &Job{id: id, name: name, status: StatusSlicing, createdAt: now, updatedAt: now}
}

// Snapshot returns a consistent copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := JobSnapshot{
		ID:        j.id,
		Name:      j.name,
		Status:    j.status,
		Progress:  j.progress,
		Error:     j.err,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if r := j.result; r != nil {
		s.Levels = len(r.Final)
		s.Points = r.Final.PointCount()
		s.PrintTime = r.PrintTimeText
		s.FeedrateMin = r.Summary.Min
		s.FeedrateMax = r.Summary.Max
	}
	return s
}

// Result returns the finished run, or nil.
func (j *Job) Result() *pipeline.Result {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

func (j *Job) finished() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status == StatusDone || j.status == StatusFailed
}

func (j *Job) update(fn func(j *Job)) {
	j.mu.Lock()
	fn(j)
	j.updatedAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) setProgress(f float64) {
	j.update(func(j *Job) { j.progress = f })
}

func (j *Job) setStatus(s Status) {
	j.update(func(j *Job) { j.status = s })
}

func (j *Job) fail(err error) {
	j.update(func(j *Job) {
		j.status = StatusFailed
		j.err = err.Error()
	})
}

func (j *Job) complete(r *pipeline.Result) {
	j.update(func(j *Job) {
		j.status = StatusDone
		j.progress = 1
		j.result = r
	})
}

// jobTable holds recent jobs. Finished jobs beyond max are evicted oldest
// first.
type jobTable struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	max  int
}

func newJobTable(max int) *jobTable {
	return &jobTable{jobs: make(map[string]*Job), max: max}
}

func (t *jobTable) add(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[j.id] = j
	if len(t.jobs) <= t.max {
		return
	}
	var done []*Job
	for _, job := range t.jobs {
		if job.finished() {
			done = append(done, job)
		}
	}
	sort.Slice(done, func(a, b int) bool { return done[a].createdAt.Before(done[b].createdAt) })
	for _, job := range done {
		if len(t.jobs) <= t.max {
			break
		}
		delete(t.jobs, job.id)
	}
}

func (t *jobTable) get(id string) *Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.jobs[id]
}

func (t *jobTable) list() []JobSnapshot {
	t.mu.RLock()
	out := make([]JobSnapshot, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.Snapshot())
	}
	t.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}
