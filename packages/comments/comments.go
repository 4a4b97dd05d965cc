// Package comments stores free-text notes attached to cells. comments never
// take part in computation.
package comments

import (
	"time"

	"github.com/google/uuid"

	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

// DefaultAuthor is recorded when a comment is added without an author
const DefaultAuthor = "User"

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
}

// Manager keeps comments per cell in the order they were added. it is not
// safe for concurrent use, owners serialize access.
type Manager struct {
	comments map[spreadsheet.CellKey][]Comment
	now      func() time.Time
	newID    func() string
}

type Option func(*Manager)

// WithClock replaces time.Now for comment timestamps
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator replaces random UUIDs for comment ids
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		comments: make(map[spreadsheet.CellKey][]Comment),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add attaches a new comment to key and returns it
func (m *Manager) Add(key spreadsheet.CellKey, content, author string) Comment {
	if author == "" {
		author = DefaultAuthor
	}
	comment := Comment{
		ID:        m.newID(),
		Content:   content,
		Timestamp: m.now(),
		Author:    author,
	}
	m.comments[key] = append(m.comments[key], comment)
	return comment
}

// Restore puts back a previously removed comment, keeping its id and timestamp
func (m *Manager) Restore(key spreadsheet.CellKey, comment Comment) {
	m.comments[key] = append(m.comments[key], comment)
}

// List returns a copy of the comments on key, oldest first
func (m *Manager) List(key spreadsheet.CellKey) []Comment {
	list := m.comments[key]
	out := make([]Comment, len(list))
	copy(out, list)
	return out
}

// Delete removes the comment with id from key. deleting an unknown id is a
// no-op and returns false.
func (m *Manager) Delete(key spreadsheet.CellKey, id string) (Comment, bool) {
	list := m.comments[key]
	for i, comment := range list {
		if comment.ID != id {
			continue
		}
		m.comments[key] = append(list[:i:i], list[i+1:]...)
		return comment, true
	}
	return Comment{}, false
}
