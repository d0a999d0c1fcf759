package domain

import "time"

// Car is a listing owned by exactly one user. The owner is set at
// creation and never reassigned.
type Car struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	Tags        []string
	Images      []CarImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CarImage is a stored media object attached to a car. PublicID is the
// handle the media adapter accepts for deletion; URL is publicly
// fetchable.
type CarImage struct {
	ID       int64
	CarID    int64
	URL      string
	PublicID string
	Position int
}
