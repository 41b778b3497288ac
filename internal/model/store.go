package model

import "time"

// Store represents a rateable store. OwnerID optionally links the store to a
// user whose role must be store_owner at assignment time; the link is not
// re-checked when the owner's role later changes.
type Store struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Address   string    `json:"address" gorm:"type:varchar(400)"`
	OwnerID   *uint     `json:"owner_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreWithRating carries a store row together with its aggregates, which are
// never stored and always computed at read time. OwnerName is only populated
// by the admin listing, which joins the users table.
type StoreWithRating struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	OwnerID       *uint     `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	AverageRating float64   `json:"average_rating"`
	TotalRatings  int64     `json:"total_ratings"`
	OwnerName     *string   `json:"owner_name,omitempty"`
}
