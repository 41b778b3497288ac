package model

import "time"

// Rating records one user's 1-5 score for one store. The composite unique
// index keeps the pair unique at the storage layer and backs the ON CONFLICT
// upsert in the rating handler.
type Rating struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_ratings_user_store"`
	StoreID   uint      `json:"store_id" gorm:"not null;uniqueIndex:idx_ratings_user_store"`
	Rating    int       `json:"rating" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingWithUser is a rating joined with the submitting user's identity, as
// returned to store owners and admins.
type RatingWithUser struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	StoreID   uint      `json:"store_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
}
