package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/sitepanel/pkg/audit"
)

// Store reads site content and manages contact messages
type Store struct {
	db *sql.DB
}

// NewStore creates a new content store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Stats counts projects, messages and unread messages concurrently
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dest *int, query string, args ...interface{}) {
		g.Go(func() error {
			if err := s.db.QueryRowContext(ctx, query, args...).Scan(dest); err != nil {
				return fmt.Errorf("failed to count: %w", err)
			}
			return nil
		})
	}
	count(&stats.TotalProjects, "SELECT COUNT(*) FROM projects")
	count(&stats.TotalMessages, "SELECT COUNT(*) FROM contact_messages")
	count(&stats.UnreadMessages, "SELECT COUNT(*) FROM contact_messages WHERE status = $1", string(MessageUnread))

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListProjects returns projects newest first. An empty status returns all.
func (s *Store) ListProjects(ctx context.Context, status ProjectStatus) ([]*Project, error) {
	query := `SELECT id, title, description, image_url, technologies, github_url, live_url, status, created_at
		FROM projects`
	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*Project{}
	for rows.Next() {
		var p Project
		var imageURL, githubURL, liveURL sql.NullString
		var technologies, st string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &imageURL, &technologies,
			&githubURL, &liveURL, &st, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if err := json.Unmarshal([]byte(technologies), &p.Technologies); err != nil {
			return nil, fmt.Errorf("failed to decode technologies of project %s: %w", p.ID, err)
		}
		p.ImageURL = imageURL.String
		p.GithubURL = githubURL.String
		p.LiveURL = liveURL.String
		p.Status = ProjectStatus(st)
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// ListMessages returns contact messages newest first
func (s *Store) ListMessages(ctx context.Context, filter MessageFilter) ([]*Message, error) {
	query := "SELECT id, name, email, message, status, created_at FROM contact_messages"
	var args []interface{}
	if filter.Status != "" {
		query += " WHERE status = $1"
		args = append(args, string(filter.Status))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		var m Message
		var st string
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &st, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Status = MessageStatus(st)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// MarkMessageRead sets a message's status to read
func (s *Store) MarkMessageRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE contact_messages SET status = $1 WHERE id = $2", string(MessageRead), id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	recordMessageEvent(ctx, audit.EventTypeContentMessageRead, id)
	return nil
}

// DeleteMessage removes a contact message
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM contact_messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	recordMessageEvent(ctx, audit.EventTypeContentMessageDelete, id)
	return nil
}

func recordMessageEvent(ctx context.Context, eventType audit.EventType, id string) {
	event := audit.NewEvent(ctx, nil, eventType, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeMessage
	event.ResourceID = id
	audit.Record(ctx, event)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
