package catalog

import "time"

// Profile is a registered user.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"size:64" json:"username"`
	Email     string    `gorm:"size:255" json:"email"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent is a published AI agent.
type Agent struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:255" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"size:64;index" json:"category"`
	Tags         []string  `gorm:"serializer:json" json:"tags"`
	MCPServerURL string    `gorm:"size:512" json:"mcp_server_url,omitempty"`
	DemoLink     string    `gorm:"size:512" json:"demo_link,omitempty"`
	ThumbnailURL string    `gorm:"size:512" json:"thumbnail_url,omitempty"`
	PublisherID  string    `gorm:"size:36;index" json:"publisher_id"`
	UpvotesCount int       `json:"upvotes_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Publisher    *Profile  `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
}

// MCPServer is a published Model Context Protocol server.
type MCPServer struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Name             string    `gorm:"size:255" json:"name"`
	Description      string    `gorm:"type:text" json:"description"`
	Category         string    `gorm:"size:64;index" json:"category"`
	Tags             []string  `gorm:"serializer:json" json:"tags"`
	ServerURL        string    `gorm:"size:512" json:"server_url"`
	DocumentationURL string    `gorm:"size:512" json:"documentation_url,omitempty"`
	ThumbnailURL     string    `gorm:"size:512" json:"thumbnail_url,omitempty"`
	PublisherID      string    `gorm:"size:36;index" json:"publisher_id"`
	UpvotesCount     int       `json:"upvotes_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Publisher        *Profile  `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
}

func (MCPServer) TableName() string { return "mcp_servers" }

// Event is a community event.
type Event struct {
	ID                   string     `gorm:"primaryKey;size:36" json:"id"`
	Title                string     `gorm:"size:255" json:"title"`
	Description          string     `gorm:"type:text" json:"description"`
	EventType            string     `gorm:"size:16" json:"event_type"`
	Location             string     `gorm:"size:255" json:"location,omitempty"`
	EventURL             string     `gorm:"size:512" json:"event_url,omitempty"`
	StartDate            time.Time  `gorm:"index" json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	MaxAttendees         *int       `json:"max_attendees,omitempty"`
	CurrentAttendees     int        `json:"current_attendees"`
	Category             string     `gorm:"size:64" json:"category"`
	Tags                 []string   `gorm:"serializer:json" json:"tags"`
	ThumbnailURL         string     `gorm:"size:512" json:"thumbnail_url,omitempty"`
	OrganizerID          string     `gorm:"size:36;index" json:"organizer_id"`
	IsFeatured           bool       `json:"is_featured"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Organizer            *Profile   `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
}

// EventAttendee is a registration for an event.
type EventAttendee struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	EventID      string    `gorm:"size:36;index" json:"event_id"`
	UserID       string    `gorm:"size:36;index" json:"user_id"`
	Status       string    `gorm:"size:16" json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
	User         *Profile  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Comment is a comment on an agent or an MCP server. Both tables share
// this shape; the subject column differs.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *Profile  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
