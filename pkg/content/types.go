package content

import (
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown project or message id
var ErrNotFound = errors.New("content not found")

// ProjectStatus separates the portfolio from work in progress
type ProjectStatus string

const (
	ProjectCompleted  ProjectStatus = "completed"
	ProjectInProgress ProjectStatus = "in-progress"
)

// Project is a portfolio or current project shown on the public site
type Project struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ImageURL     string        `json:"image_url,omitempty"`
	Technologies []string      `json:"technologies"`
	GithubURL    string        `json:"github_url,omitempty"`
	LiveURL      string        `json:"live_url,omitempty"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// MessageStatus tracks whether a contact message has been read
type MessageStatus string

const (
	MessageUnread MessageStatus = "unread"
	MessageRead   MessageStatus = "read"
)

// Message is a contact form submission
type Message struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Message   string        `json:"message"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Stats are the dashboard counters
type Stats struct {
	TotalProjects  int `json:"total_projects"`
	TotalMessages  int `json:"total_messages"`
	UnreadMessages int `json:"unread_messages"`
}

// MessageFilter narrows ListMessages. A zero Limit means DefaultLimit.
type MessageFilter struct {
	Status MessageStatus
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
