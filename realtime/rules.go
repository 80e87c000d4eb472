package realtime

import (
	"slices"
	"strings"

	"github.com/dailyyoga/datakit/catalog"
)

// IDPlaceholder in a key template is replaced by the change's Column value.
const IDPlaceholder = "{id}"

// Rule invalidates cache keys when Table changes.
type Rule struct {
	Table string
	// Events limits the rule to these events; empty matches all.
	Events []Event
	// Column supplies the {id} value. Rules whose templates use {id} are
	// skipped when the change lacks the column.
	Column string
	// Keys are invalidated exactly.
	Keys []string
	// Prefixes invalidate every key that starts with them.
	Prefixes []string
}

func (r Rule) matches(c Change) bool {
	if r.Table != c.Table {
		return false
	}
	return len(r.Events) == 0 || slices.Contains(r.Events, c.Event)
}

func (r Rule) needsID() bool {
	for _, t := range append(slices.Clone(r.Keys), r.Prefixes...) {
		if strings.Contains(t, IDPlaceholder) {
			return true
		}
	}
	return false
}

// expand substitutes id into the rule's templates.
func (r Rule) expand(id string) (keys, prefixes []string) {
	sub := func(ts []string) []string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = strings.ReplaceAll(t, IDPlaceholder, id)
		}
		return out
	}
	return sub(r.Keys), sub(r.Prefixes)
}

// DefaultRules covers the catalog: comments, upvotes and attendees refresh
// the record they belong to, new agents, MCP servers and events refresh
// every list of their kind.
func DefaultRules() []Rule {
	return []Rule{
		{
			Table:  "comments",
			Column: "agent_id",
			Keys:   []string{catalog.CommentsKey(catalog.CommentsOnAgent, IDPlaceholder)},
		},
		{
			Table:  "mcp_comments",
			Column: "mcp_server_id",
			Keys:   []string{catalog.CommentsKey(catalog.CommentsOnMCP, IDPlaceholder)},
		},
		{
			Table:  "upvotes",
			Column: "agent_id",
			Keys:   []string{catalog.AgentKey(IDPlaceholder)},
		},
		{
			Table:  "mcp_upvotes",
			Column: "mcp_server_id",
			Keys:   []string{catalog.MCPServerKey(IDPlaceholder)},
		},
		{
			Table:  "event_attendees",
			Column: "event_id",
			Keys: []string{
				catalog.EventKey(IDPlaceholder),
				catalog.EventAttendeesKey(IDPlaceholder),
			},
		},
		{
			Table:    "agents",
			Events:   []Event{EventInsert},
			Keys:     []string{catalog.LeaderboardAgentsKey},
			Prefixes: []string{catalog.AgentsPrefix},
		},
		{
			Table:    "mcp_servers",
			Events:   []Event{EventInsert},
			Keys:     []string{catalog.LeaderboardMCPKey},
			Prefixes: []string{catalog.MCPServersPrefix},
		},
		{
			Table:    "events",
			Events:   []Event{EventInsert},
			Prefixes: []string{catalog.EventsPrefix},
		},
	}
}
