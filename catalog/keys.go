package catalog

import (
	"strconv"
	"strings"
)

// Sort orders list queries.
type Sort string

const (
	SortTrending Sort = "trending"
	SortNewest   Sort = "newest"
	SortPopular  Sort = "popular"
	// SortUpcoming applies to events only.
	SortUpcoming Sort = "upcoming"
)

// AllCategories disables the category filter.
const AllCategories = "All"

// CommentKind selects the commented resource.
type CommentKind string

const (
	CommentsOnAgent CommentKind = "agent"
	CommentsOnMCP   CommentKind = "mcp"
)

// Key prefixes. Invalidating a prefix reaches every list variant.
const (
	AgentsPrefix         = "agents-"
	MCPServersPrefix     = "mcp-servers-"
	EventsPrefix         = "events-"
	CommentsPrefix       = "comments-"
	LeaderboardAgentsKey = "leaderboard-agents"
	LeaderboardMCPKey    = "leaderboard-mcp-servers"
)

// ListFilter selects a page of agents or MCP servers.
type ListFilter struct {
	Category string
	Search   string
	Sort     Sort
	// Limit caps the result size; zero returns everything.
	Limit int
}

func (f ListFilter) normalize() ListFilter {
	if f.Category == "" {
		f.Category = AllCategories
	}
	if f.Sort == "" {
		f.Sort = SortTrending
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f ListFilter) key(prefix string) string {
	f = f.normalize()
	k := prefix + f.Category + "-" + f.Search + "-" + string(f.Sort)
	if f.Limit > 0 {
		k += "-" + strconv.Itoa(f.Limit)
	}
	return k
}

// EventFilter selects a page of events.
type EventFilter struct {
	EventType string
	Category  string
	Sort      Sort
	Limit     int
}

func (f EventFilter) normalize() EventFilter {
	if f.Category == "" {
		f.Category = AllCategories
	}
	if f.EventType == "" {
		f.EventType = AllCategories
	}
	if f.Sort == "" {
		f.Sort = SortUpcoming
	}
	return f
}

// AgentsKey returns the cache key of an agent list, e.g.
// AgentsKey("All", "", SortTrending) is "agents-All--trending".
func AgentsKey(category, search string, sort Sort) string {
	return ListFilter{Category: category, Search: search, Sort: sort}.key(AgentsPrefix)
}

// AgentsKey returns the agent list key for f.
func (f ListFilter) AgentsKey() string { return f.key(AgentsPrefix) }

// MCPServersKey returns the cache key of an MCP server list.
func MCPServersKey(category, search string, sort Sort) string {
	return ListFilter{Category: category, Search: search, Sort: sort}.key(MCPServersPrefix)
}

// MCPServersKey returns the MCP server list key for f.
func (f ListFilter) MCPServersKey() string { return f.key(MCPServersPrefix) }

// EventsKey returns the cache key of an event list.
func EventsKey(f EventFilter) string {
	f = f.normalize()
	k := EventsPrefix + f.EventType + "-" + f.Category + "-" + string(f.Sort)
	if f.Limit > 0 {
		k += "-" + strconv.Itoa(f.Limit)
	}
	return k
}

func AgentKey(id string) string          { return "agent-" + id }
func MCPServerKey(id string) string      { return "mcp-server-" + id }
func EventKey(id string) string          { return "event-" + id }
func EventAttendeesKey(id string) string { return "event-attendees-" + id }

// CommentsKey returns the key of the comments on one agent or MCP server.
func CommentsKey(kind CommentKind, id string) string {
	return CommentsPrefix + string(kind) + "-" + id
}

// UserAgentsKey returns the key of the agents published by uid. Its data
// depends on the signed-in user, so queries on it should be identity-scoped.
func UserAgentsKey(uid string) string {
	return AgentsPrefix + "user-" + uid
}
