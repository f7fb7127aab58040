package models

import "time"

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var statuses = []Status{StatusNew, StatusInProgress, StatusResolved, StatusClosed}

// ParseStatus validates a status coming from a request.
func ParseStatus(s string) (Status, bool) {
	for _, st := range statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func ParsePriority(s string) (Priority, bool) {
	for _, p := range priorities {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// ApplyStatus moves the feedback to next and derives the audit timestamps.
// Every edge is allowed. ReviewedAt is stamped once, on the first move away
// from new. ResolvedAt is stamped on each entry into resolved and never goes
// backwards or back to nil. It reports whether the status changed.
func (f *Feedback) ApplyStatus(next Status, now time.Time) bool {
	if f.Status == next {
		return false
	}
	prev := f.Status
	f.Status = next

	if prev == StatusNew && f.ReviewedAt == nil {
		t := now
		f.ReviewedAt = &t
	}
	if next == StatusResolved && (f.ResolvedAt == nil || now.After(*f.ResolvedAt)) {
		t := now
		f.ResolvedAt = &t
	}
	return true
}
