package domain

import "time"

// Posting is one internship row as produced by a source parser.
type Posting struct {
	Company             string   `json:"company"`
	Role                string   `json:"role"`
	Category            string   `json:"category"`
	Locations           []string `json:"locations"`
	ApplicationLink     string   `json:"applicationLink,omitempty"`
	DatePosted          string   `json:"datePosted"`
	RequiresCitizenship bool     `json:"requiresCitizenship"`
	NoSponsorship       bool     `json:"noSponsorship"`
	IsSubsidiary        bool     `json:"isSubsidiary"`
	IsFreshmanFriendly  bool     `json:"isFreshmanFriendly"`
	IsClosed            bool     `json:"isClosed"`

	Source         string `json:"source"`
	SourcePriority int    `json:"-"`
	SourceIndex    int    `json:"-"`
}

// PrimaryLocation is the first listed location, or "Remote" when none are set.
func (p Posting) PrimaryLocation() string {
	if len(p.Locations) == 0 {
		return "Remote"
	}
	return p.Locations[0]
}

// PersistedPosting is a Posting as written to the snapshot table.
type PersistedPosting struct {
	Posting
	ID        string    `json:"id"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}
