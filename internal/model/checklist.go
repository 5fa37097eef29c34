package model

import "time"

// ChecklistEntry is a sub-task attached to one item.
type ChecklistEntry struct {
	ID          int64     `json:"id" yaml:"id"`
	ItemID      string    `json:"item_id" yaml:"item_id"`
	Description string    `json:"description" yaml:"description"`
	Completed   bool      `json:"completed" yaml:"completed"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// ChecklistCount summarizes an item's checklist.
type ChecklistCount struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
}

// Incomplete returns the number of open entries.
func (c ChecklistCount) Incomplete() int {
	return c.Total - c.Completed
}
