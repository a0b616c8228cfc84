package domain

import (
	"time"
)

// Review content and rating bounds enforced on submission.
const (
	MinRating         = 1
	MaxRating         = 5
	MaxContentLength  = 360
	ProductPreviewMax = 3
)

// Review represents a product review submitted by a user. A user may hold at
// most one review per product; the store enforces this with a unique
// constraint on (product_id, author_id).
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	Date      time.Time `json:"date"`
}

// ReviewWithAuthor is a review joined with its author's public profile.
type ReviewWithAuthor struct {
	Review
	Author User `json:"author"`
}
