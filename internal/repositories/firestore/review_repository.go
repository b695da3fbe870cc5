package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/ordercraft/api/internal/domain"
	pfirestore "github.com/ordercraft/api/internal/platform/firestore"
	"github.com/ordercraft/api/internal/repositories"
)

// ReviewRepository persists product reviews. The review document ID is derived
// from the user and product pair, which makes the one-review rule a document
// existence check.
type ReviewRepository struct {
	provider *pfirestore.Provider
	reviews  *pfirestore.BaseRepository[reviewDocument]
	products *pfirestore.BaseRepository[productDocument]
}

var _ repositories.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository constructs a ReviewRepository backed by Firestore.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	return &ReviewRepository{
		provider: provider,
		reviews:  pfirestore.NewBaseRepository[reviewDocument](provider, reviewsCollection, nil, nil),
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
	}, nil
}

// Create writes the review and updates the product's rating aggregates in one
// transaction. The caller must have a delivered order containing the product,
// and at most one review may exist per user and product.
func (r *ReviewRepository) Create(ctx context.Context, review domain.Review) (repositories.ReviewCreateResult, error) {
	if r == nil || r.provider == nil {
		return repositories.ReviewCreateResult{}, errors.New("review repository not initialised")
	}
	userID := strings.TrimSpace(review.UserID)
	productID := strings.TrimSpace(review.ProductID)
	if userID == "" {
		return repositories.ReviewCreateResult{}, errors.New("review create: user id is required")
	}
	if productID == "" {
		return repositories.ReviewCreateResult{}, errors.New("review create: product id is required")
	}
	if review.Rating < 1 || review.Rating > 5 {
		return repositories.ReviewCreateResult{}, errors.New("review create: rating must be between 1 and 5")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.ReviewCreateResult{}, pfirestore.WrapError("reviews.create", err)
	}

	reviewID := reviewDocumentID(userID, productID)
	var result repositories.ReviewCreateResult
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		productRef, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		productSnap, err := tx.Get(productRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewReviewError(repositories.ReviewErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
			}
			return err
		}
		var productDoc productDocument
		if err := productSnap.DataTo(&productDoc); err != nil {
			return fmt.Errorf("decode product %s: %w", productID, err)
		}

		reviewRef, err := r.reviews.DocumentRef(ctx, reviewID)
		if err != nil {
			return err
		}
		if _, err := tx.Get(reviewRef); err == nil {
			return repositories.NewReviewError(repositories.ReviewErrorDuplicate, fmt.Sprintf("user %s already reviewed product %s", userID, productID), nil)
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		// Eligibility requires a delivered order of this user containing the
		// product. The order document carries a productIds array for exactly
		// this query.
		eligibilityQuery := client.Collection(ordersCollection).Query.
			Where("userId", "==", userID).
			Where("status", "==", string(domain.OrderStatusDelivered)).
			Where("productIds", "array-contains", productID).
			Limit(1)
		deliveredIter := tx.Documents(eligibilityQuery)
		_, err = deliveredIter.Next()
		deliveredIter.Stop()
		if errors.Is(err, iterator.Done) {
			return repositories.NewReviewError(repositories.ReviewErrorPurchaseNotVerified, fmt.Sprintf("user %s has no delivered order containing product %s", userID, productID), nil)
		}
		if err != nil {
			return err
		}

		// Recompute the mean over all existing reviews rather than nudging the
		// stored aggregate, so drift from past writes cannot accumulate.
		ratingsQuery := client.Collection(reviewsCollection).Query.
			Where("productId", "==", productID)
		ratingsIter := tx.Documents(ratingsQuery)
		defer ratingsIter.Stop()
		var sum, count int64
		for {
			snap, err := ratingsIter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return err
			}
			var existing reviewDocument
			if err := snap.DataTo(&existing); err != nil {
				return fmt.Errorf("decode review %s: %w", snap.Ref.ID, err)
			}
			sum += int64(existing.Rating)
			count++
		}
		sum += int64(review.Rating)
		count++

		productDoc.AverageRating = float64(sum) / float64(count)
		productDoc.ReviewsCount = count
		productDoc.UpdatedAt = review.CreatedAt.UTC()

		stored := review
		stored.ID = reviewID
		stored.UserID = userID
		stored.ProductID = productID

		if err := tx.Create(reviewRef, newReviewDocument(stored)); err != nil {
			return err
		}
		if err := tx.Set(productRef, productDoc); err != nil {
			return err
		}

		result = repositories.ReviewCreateResult{
			Review:  stored,
			Product: productDoc.toDomain(productID),
		}
		return nil
	})
	if err != nil {
		return repositories.ReviewCreateResult{}, wrapReviewError("reviews.create", err)
	}
	return result, nil
}

// ListByProduct returns the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, pager domain.Pagination) (domain.CursorPage[domain.Review], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Review]{}, errors.New("review repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.CursorPage[domain.Review]{}, errors.New("review list: product id is required")
	}

	pageSize := pager.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Review]{}, pfirestore.WrapError("reviews.list", err)
	}

	query := client.Collection(reviewsCollection).Query.
		Where("productId", "==", productID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodePageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Review]{}, pfirestore.WrapError("reviews.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var reviews []domain.Review
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Review]{}, pfirestore.WrapError("reviews.list", err)
		}
		var doc reviewDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Review]{}, fmt.Errorf("decode review %s: %w", snap.Ref.ID, err)
		}
		reviews = append(reviews, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(reviews) > pageSize
	if hasMore {
		reviews = reviews[:pageSize]
	}
	var nextToken string
	if hasMore && len(reviews) > 0 {
		last := reviews[len(reviews)-1]
		encoded, err := encodePageToken(pageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Review]{}, pfirestore.WrapError("reviews.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Review]{
		Items:         reviews,
		NextPageToken: nextToken,
	}, nil
}

func wrapReviewError(op string, err error) error {
	if err == nil {
		return nil
	}
	var reviewErr *repositories.ReviewError
	if errors.As(err, &reviewErr) {
		if reviewErr.Op == "" {
			reviewErr.Op = op
		}
		return reviewErr
	}
	return pfirestore.WrapError(op, err)
}
