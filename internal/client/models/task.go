package models

import "time"

// Task is a tracked span of work.
type Task struct {
	SyncMeta
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
	Tags      []string  `json:"tags"`
	Project   string    `json:"project"`
	Rate      float64   `json:"rate"`
	Currency  string    `json:"currency"`
}

func (t Task) Kind() Kind     { return KindTask }
func (t Task) Meta() SyncMeta { return t.SyncMeta }

func (t Task) WithMeta(m SyncMeta) Task {
	t.SyncMeta = m
	return t
}

// Duration is the tracked time, or zero while the task is still running.
func (t Task) Duration() time.Duration {
	if t.StopTime.IsZero() || t.StopTime.Before(t.StartTime) {
		return 0
	}
	return t.StopTime.Sub(t.StartTime)
}

// Shortcut is a saved template for starting tasks.
type Shortcut struct {
	SyncMeta
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	Project  string   `json:"project"`
	Rate     float64  `json:"rate"`
	Currency string   `json:"currency"`
	ColorHex string   `json:"color_hex"`
}

func (s Shortcut) Kind() Kind     { return KindShortcut }
func (s Shortcut) Meta() SyncMeta { return s.SyncMeta }

func (s Shortcut) WithMeta(m SyncMeta) Shortcut {
	s.SyncMeta = m
	return s
}

// Todo is a planned item for a given day.
type Todo struct {
	SyncMeta
	Name        string    `json:"name"`
	Project     string    `json:"project"`
	Tags        []string  `json:"tags"`
	Rate        float64   `json:"rate"`
	Date        time.Time `json:"date"`
	IsCompleted bool      `json:"is_completed"`
}

func (t Todo) Kind() Kind     { return KindTodo }
func (t Todo) Meta() SyncMeta { return t.SyncMeta }

func (t Todo) WithMeta(m SyncMeta) Todo {
	t.SyncMeta = m
	return t
}
