package contracts

import "time"

// Org is a tenant
type Org struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Role of a member within an org
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Member links a user to an org
type Member struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Profile holds the contact email used for digests
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// DefaultOrgName is used when the email has no domain part
const DefaultOrgName = "My Organisation"

// FeedSource is a configured RSS/Atom feed
type FeedSource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// FeedItem is the dedupe record of one fetched entry
type FeedItem struct {
	FeedID      string
	GUID        string
	Title       string
	Link        string
	PublishedAt time.Time
}

// Delivery records a claimed or completed digest send
type Delivery struct {
	OrgID      string
	DigestDate time.Time
	RunID      string
	Recipients int
	MessageID  string
}
