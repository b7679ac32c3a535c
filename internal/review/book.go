// internal/review/book.go

// Package review keeps a user's product reviews, at most one per product.
package review

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/javajoker/storefront/internal/models"
)

const MaxCommentLength = 2000

type Input struct {
	ProductID string `json:"product_id" validate:"required"`
	OrderID   string `json:"order_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required"`
	Comment   string `json:"comment"`
}

// Book is one user's reviews keyed by product id.
type Book struct {
	userID   string
	userName string
	byProd   map[string]models.Review
	now      func() time.Time
	newID    func() string
}

func NewBook(userID, userName string) *Book {
	return &Book{
		userID:   userID,
		userName: userName,
		byProd:   make(map[string]models.Review),
		now:      time.Now,
		newID:    models.NewID,
	}
}

func (b *Book) WithClock(now func() time.Time) *Book {
	b.now = now
	return b
}

// ValidateRating rejects ratings outside [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return models.NewValidationError("review.invalid_rating", "rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	return nil
}

func validateComment(comment string) error {
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return models.NewValidationError("review.comment_too_long", "comment must be at most %d characters", MaxCommentLength)
	}
	return nil
}

// Create adds a review. A second review for the same product fails with
// Conflict; the caller should Update the existing one instead.
func (b *Book) Create(in Input) (models.Review, error) {
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.OrderID) == "" {
		return models.Review{}, models.NewValidationError("review.invalid", "product and order are required")
	}
	if err := ValidateRating(in.Rating); err != nil {
		return models.Review{}, err
	}
	comment := strings.TrimSpace(in.Comment)
	if err := validateComment(comment); err != nil {
		return models.Review{}, err
	}
	if existing, ok := b.byProd[in.ProductID]; ok {
		return models.Review{}, models.NewDomainError(
			models.KindConflict, "review.exists", "product already reviewed as "+existing.ID, existing.ID)
	}

	now := b.now()
	r := models.Review{
		ID:        b.newID(),
		UserID:    b.userID,
		UserName:  b.userName,
		ProductID: in.ProductID,
		OrderID:   in.OrderID,
		Rating:    in.Rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.byProd[r.ProductID] = r
	return r, nil
}

// Update changes rating and comment of review id.
func (b *Book) Update(id string, rating int, comment string) (models.Review, error) {
	r, ok := b.Get(id)
	if !ok {
		return models.Review{}, models.NewNotFound("review", id)
	}
	if err := ValidateRating(rating); err != nil {
		return models.Review{}, err
	}
	comment = strings.TrimSpace(comment)
	if err := validateComment(comment); err != nil {
		return models.Review{}, err
	}

	r.Rating = rating
	r.Comment = comment
	r.UpdatedAt = b.now()
	b.byProd[r.ProductID] = r
	return r, nil
}

func (b *Book) Remove(id string) (models.Review, error) {
	r, ok := b.Get(id)
	if !ok {
		return models.Review{}, models.NewNotFound("review", id)
	}
	delete(b.byProd, r.ProductID)
	return r, nil
}

func (b *Book) Get(id string) (models.Review, bool) {
	for _, r := range b.byProd {
		if r.ID == id {
			return r, true
		}
	}
	return models.Review{}, false
}

func (b *Book) ForProduct(productID string) (models.Review, bool) {
	r, ok := b.byProd[productID]
	return r, ok
}

func (b *Book) Len() int {
	return len(b.byProd)
}

// ReplaceAll loads stored reviews. If storage holds several reviews for one
// product the most recently updated wins.
func (b *Book) ReplaceAll(reviews []models.Review) {
	byProd := make(map[string]models.Review, len(reviews))
	for _, r := range reviews {
		if prev, ok := byProd[r.ProductID]; ok && prev.UpdatedAt.After(r.UpdatedAt) {
			continue
		}
		byProd[r.ProductID] = r
	}
	b.byProd = byProd
}

// Stats is the aggregate shown on a product.
type Stats struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Summarize averages ratings, rounded to one decimal place.
func Summarize(reviews []models.Review) Stats {
	if len(reviews) == 0 {
		return Stats{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return Stats{
		Average: float64(int(avg*10+0.5)) / 10,
		Count:   len(reviews),
	}
}
