// Package catalog provides fetch functions for the directory's agents, MCP
// servers, events and comments, together with the cache keys they are
// stored under.
//
// Every fetch function has the shape func(ctx) (T, error) and returns
// errors already classified by the source package, so it can be passed to
// query.New directly.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/dailyyoga/datakit/db"
	"github.com/dailyyoga/datakit/logger"
	"gorm.io/gorm"
)

// Repository reads the catalog tables.
type Repository struct {
	db     db.Database
	logger logger.Logger
	now    func() time.Time
}

// NewRepository creates a repository over d.
func NewRepository(d db.Database, log logger.Logger) *Repository {
	return &Repository{db: d, logger: logger.OrNop(log), now: time.Now}
}

// ListAgents returns a fetch function for the agents matching f.
func (r *Repository) ListAgents(f ListFilter) func(ctx context.Context) ([]Agent, error) {
	f = f.normalize()
	return func(ctx context.Context) ([]Agent, error) {
		out := make([]Agent, 0)
		err := r.find(ctx, "list agents", &out, func(tx *gorm.DB) *gorm.DB {
			return applyList(tx.Preload("Publisher"), f)
		})
		return out, err
	}
}

// GetAgent returns a fetch function for one agent.
func (r *Repository) GetAgent(id string) func(ctx context.Context) (Agent, error) {
	return func(ctx context.Context) (Agent, error) {
		var out Agent
		err := r.first(ctx, "get agent", &out, func(tx *gorm.DB) *gorm.DB {
			return tx.Preload("Publisher").Where("id = ?", id)
		})
		return out, err
	}
}

// ListUserAgents returns a fetch function for the agents published by uid,
// newest first.
func (r *Repository) ListUserAgents(uid string) func(ctx context.Context) ([]Agent, error) {
	return func(ctx context.Context) ([]Agent, error) {
		out := make([]Agent, 0)
		if uid == "" {
			return out, nil
		}
		err := r.find(ctx, "list user agents", &out, func(tx *gorm.DB) *gorm.DB {
			return tx.Preload("Publisher").Where("publisher_id = ?", uid).Order("created_at DESC")
		})
		return out, err
	}
}

// ListMCPServers returns a fetch function for the MCP servers matching f.
func (r *Repository) ListMCPServers(f ListFilter) func(ctx context.Context) ([]MCPServer, error) {
	f = f.normalize()
	return func(ctx context.Context) ([]MCPServer, error) {
		out := make([]MCPServer, 0)
		err := r.find(ctx, "list mcp servers", &out, func(tx *gorm.DB) *gorm.DB {
			return applyList(tx.Preload("Publisher"), f)
		})
		return out, err
	}
}

// GetMCPServer returns a fetch function for one MCP server.
func (r *Repository) GetMCPServer(id string) func(ctx context.Context) (MCPServer, error) {
	return func(ctx context.Context) (MCPServer, error) {
		var out MCPServer
		err := r.first(ctx, "get mcp server", &out, func(tx *gorm.DB) *gorm.DB {
			return tx.Preload("Publisher").Where("id = ?", id)
		})
		return out, err
	}
}

// LeaderboardAgents returns a fetch function for all agents by upvotes.
func (r *Repository) LeaderboardAgents() func(ctx context.Context) ([]Agent, error) {
	return r.ListAgents(ListFilter{Sort: SortPopular})
}

// LeaderboardMCPServers returns a fetch function for all MCP servers by
// upvotes.
func (r *Repository) LeaderboardMCPServers() func(ctx context.Context) ([]MCPServer, error) {
	return r.ListMCPServers(ListFilter{Sort: SortPopular})
}

// ListEvents returns a fetch function for the events matching f. Upcoming
// lists only events that have not started.
func (r *Repository) ListEvents(f EventFilter) func(ctx context.Context) ([]Event, error) {
	f = f.normalize()
	return func(ctx context.Context) ([]Event, error) {
		out := make([]Event, 0)
		err := r.find(ctx, "list events", &out, func(tx *gorm.DB) *gorm.DB {
			tx = tx.Preload("Organizer")
			if f.EventType != AllCategories {
				tx = tx.Where("event_type = ?", f.EventType)
			}
			if f.Category != AllCategories {
				tx = tx.Where("category = ?", f.Category)
			}
			switch f.Sort {
			case SortUpcoming:
				tx = tx.Where("start_date >= ?", r.now().UTC()).Order("start_date ASC")
			case SortPopular:
				tx = tx.Order("current_attendees DESC")
			default:
				tx = tx.Order("created_at DESC")
			}
			if f.Limit > 0 {
				tx = tx.Limit(f.Limit)
			}
			return tx
		})
		return out, err
	}
}

// GetEvent returns a fetch function for one event.
func (r *Repository) GetEvent(id string) func(ctx context.Context) (Event, error) {
	return func(ctx context.Context) (Event, error) {
		var out Event
		err := r.first(ctx, "get event", &out, func(tx *gorm.DB) *gorm.DB {
			return tx.Preload("Organizer").Where("id = ?", id)
		})
		return out, err
	}
}

// ListEventAttendees returns a fetch function for an event's registrations,
// latest first.
func (r *Repository) ListEventAttendees(eventID string) func(ctx context.Context) ([]EventAttendee, error) {
	return func(ctx context.Context) ([]EventAttendee, error) {
		out := make([]EventAttendee, 0)
		err := r.find(ctx, "list event attendees", &out, func(tx *gorm.DB) *gorm.DB {
			return tx.Preload("User").Where("event_id = ?", eventID).Order("registered_at DESC")
		})
		return out, err
	}
}

// ListComments returns a fetch function for the comments on one agent or
// MCP server, oldest first.
func (r *Repository) ListComments(kind CommentKind, id string) func(ctx context.Context) ([]Comment, error) {
	table, column := "comments", "agent_id"
	if kind == CommentsOnMCP {
		table, column = "mcp_comments", "mcp_server_id"
	}
	return func(ctx context.Context) ([]Comment, error) {
		out := make([]Comment, 0)
		err := r.find(ctx, "list comments", &out, func(tx *gorm.DB) *gorm.DB {
			return tx.Table(table).Preload("User").Where(column+" = ?", id).Order("created_at ASC")
		})
		return out, err
	}
}

func (r *Repository) session(ctx context.Context) (*gorm.DB, error) {
	gdb, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	return gdb.WithContext(ctx), nil
}

func (r *Repository) find(ctx context.Context, op string, dest any, scope func(*gorm.DB) *gorm.DB) error {
	tx, err := r.session(ctx)
	if err != nil {
		return classify(op, err)
	}
	if err := scope(tx).Find(dest).Error; err != nil {
		return classify(op, err)
	}
	return nil
}

func (r *Repository) first(ctx context.Context, op string, dest any, scope func(*gorm.DB) *gorm.DB) error {
	tx, err := r.session(ctx)
	if err != nil {
		return classify(op, err)
	}
	if err := scope(tx).First(dest).Error; err != nil {
		return classify(op, err)
	}
	return nil
}

func applyList(tx *gorm.DB, f ListFilter) *gorm.DB {
	if f.Category != AllCategories {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		tx = tx.Where("(name LIKE ? OR description LIKE ?)", pattern, pattern)
	}
	switch f.Sort {
	case SortNewest:
		tx = tx.Order("created_at DESC")
	default:
		tx = tx.Order("upvotes_count DESC")
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
