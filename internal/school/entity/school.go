package entity

import "time"

// School is a registered school record.
type School struct {
	ID        int64
	Name      string
	Email     string
	Contact   string
	Address   string
	City      string
	State     string
	ImageURL  string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows a school listing.
type ListFilter struct {
	City   string
	State  string
	Search string
	Limit  int32
	Offset int32
}
