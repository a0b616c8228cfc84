package domain

import (
	"time"
)

// Product represents a catalog product. Rating and ReviewCount are
// denormalized aggregates over the product's reviews; they are written only
// by the review mutation path, inside the same transaction as the review
// insert or delete.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductDetail is a product together with a preview of its newest reviews.
type ProductDetail struct {
	Product
	Reviews []ReviewWithAuthor `json:"reviews"`
}
