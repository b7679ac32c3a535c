// internal/services/review_service.go
package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/review"
	"github.com/javajoker/storefront/internal/store"
	"github.com/javajoker/storefront/internal/utils"
)

type ReviewService struct {
	docs    *Collections
	catalog ProductCatalog
}

type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment"`
}

func NewReviewService(docs *Collections, catalog ProductCatalog) *ReviewService {
	return &ReviewService{docs: docs, catalog: catalog}
}

// CreateReview lets a customer review a product from one of their
// delivered orders.
func (s *ReviewService) CreateReview(ctx context.Context, identity models.Identity, in review.Input) (*models.Review, error) {
	unlock := s.docs.lock(identity.ID)
	defer unlock()

	if in.OrderID != "" {
		ord, err := s.docs.loadOrder(ctx, identity.ID, in.OrderID)
		if err != nil {
			return nil, err
		}
		if ord.Status != models.OrderStatusDelivered || !ord.Contains(in.ProductID) {
			return nil, models.NewDomainError(models.KindValidation, i18n.KeyReviewNotEligible,
				"product "+in.ProductID+" is not part of a delivered order")
		}
	}

	book, err := s.docs.loadReviews(ctx, identity.ID, identity.DisplayName)
	if err != nil {
		return nil, err
	}
	r, err := book.Create(in)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, identity.ID, r); err != nil {
		return nil, err
	}

	s.refreshStats(ctx, r.ProductID)
	return &r, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, identity models.Identity, reviewID string, req *UpdateReviewRequest) (*models.Review, error) {
	unlock := s.docs.lock(identity.ID)
	defer unlock()

	book, err := s.docs.loadReviews(ctx, identity.ID, identity.DisplayName)
	if err != nil {
		return nil, err
	}
	r, err := book.Update(reviewID, req.Rating, req.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, identity.ID, r); err != nil {
		return nil, err
	}

	s.refreshStats(ctx, r.ProductID)
	return &r, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID string) error {
	unlock := s.docs.lock(userID)
	defer unlock()

	book, err := s.docs.loadReviews(ctx, userID, "")
	if err != nil {
		return err
	}
	r, err := book.Remove(reviewID)
	if err != nil {
		return err
	}
	if err := s.docs.runBatch(ctx, "delete review", []store.Op{
		store.DeleteOp(userID, models.CollectionReviews, r.ID),
	}); err != nil {
		return err
	}

	s.refreshStats(ctx, r.ProductID)
	return nil
}

func (s *ReviewService) GetUserReviews(ctx context.Context, userID string) ([]models.Review, error) {
	records, err := s.docs.records(ctx, userID, models.CollectionReviews)
	if err != nil {
		return nil, err
	}
	reviews, err := store.DecodeAll[models.Review](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode reviews", err)
	}
	sortReviewsNewestFirst(reviews)
	return reviews, nil
}

// GetProductReviews returns one page of a product's reviews, newest first,
// and the rating summary over all of them.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID string, params utils.PaginationParams) ([]models.Review, int64, review.Stats, error) {
	reviews, err := s.productReviews(ctx, productID)
	if err != nil {
		return nil, 0, review.Stats{}, err
	}
	page, total := utils.Paginate(reviews, utils.NormalizePagination(params))
	return page, total, review.Summarize(reviews), nil
}

func (s *ReviewService) productReviews(ctx context.Context, productID string) ([]models.Review, error) {
	records, err := s.docs.Store().ListAll(ctx, models.CollectionReviews)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "list reviews", err)
	}
	all, err := store.DecodeAll[models.Review](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode reviews", err)
	}

	reviews := make([]models.Review, 0)
	for _, r := range all {
		if r.ProductID == productID {
			reviews = append(reviews, r)
		}
	}
	sortReviewsNewestFirst(reviews)
	return reviews, nil
}

func (s *ReviewService) put(ctx context.Context, userID string, r models.Review) error {
	op, err := store.PutOp(userID, models.CollectionReviews, r.ID, r)
	if err != nil {
		return err
	}
	return s.docs.runBatch(ctx, "put review", []store.Op{op})
}

// refreshStats recomputes the product's rating. The review itself is already
// saved, so a failure here is only logged.
func (s *ReviewService) refreshStats(ctx context.Context, productID string) {
	reviews, err := s.productReviews(ctx, productID)
	if err == nil {
		err = s.catalog.ApplyReviewStats(ctx, productID, review.Summarize(reviews))
	}
	if err != nil {
		logrus.WithError(err).WithField("product_id", productID).Warn("Failed to refresh product rating")
	}
}

func sortReviewsNewestFirst(reviews []models.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}
