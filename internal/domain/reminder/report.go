package reminder

// EnqueueResult is the outcome of handing one instruction to the delivery side.
type EnqueueResult struct {
	ID  string
	Err error
}

// ScheduleReport aggregates the outcome of one planning pass.
type ScheduleReport struct {
	Planned  int
	Enqueued int
	Failures []EnqueueResult
}

// Record adds one enqueue outcome to the report.
func (r *ScheduleReport) Record(id string, err error) {
	if err != nil {
		r.Failures = append(r.Failures, EnqueueResult{ID: id, Err: err})
		return
	}
	r.Enqueued++
}

// OK reports whether every planned instruction was enqueued.
func (r ScheduleReport) OK() bool {
	return len(r.Failures) == 0
}
