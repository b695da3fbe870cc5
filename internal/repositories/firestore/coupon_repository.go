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

// CouponRepository persists coupons. An index document keyed by the uppercase
// code enforces code uniqueness and makes code lookups a direct get.
type CouponRepository struct {
	provider *pfirestore.Provider
	coupons  *pfirestore.BaseRepository[couponDocument]
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository constructs a CouponRepository backed by Firestore.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		provider: provider,
		coupons:  pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil),
	}, nil
}

// Create stores a new coupon and its code index entry in one transaction.
// The code index create fails when the code is already taken.
func (r *CouponRepository) Create(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.provider == nil {
		return errors.New("coupon repository not initialised")
	}
	if strings.TrimSpace(coupon.ID) == "" {
		return errors.New("coupon create: id is required")
	}
	code := strings.ToUpper(strings.TrimSpace(coupon.Code))
	if code == "" {
		return errors.New("coupon create: code is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("coupons.create", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		codeRef := client.Collection(couponCodesCollection).Doc(code)
		if _, err := tx.Get(codeRef); err == nil {
			return repositories.NewCouponError(repositories.CouponErrorCodeExists, fmt.Sprintf("coupon code %s already exists", code), nil)
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		couponRef, err := r.coupons.DocumentRef(ctx, coupon.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(codeRef, couponCodeDocument{
			CouponID:  coupon.ID,
			CreatedAt: coupon.CreatedAt.UTC(),
		}); err != nil {
			return err
		}
		return tx.Create(couponRef, newCouponDocument(coupon))
	})
	if err != nil {
		return wrapCouponError("coupons.create", err)
	}
	return nil
}

// FindByID loads a coupon by its ID.
func (r *CouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if r == nil || r.coupons == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return domain.Coupon{}, errors.New("coupon find: id is required")
	}

	doc, err := r.coupons.Get(ctx, couponID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", couponID), err)
		}
		return domain.Coupon{}, wrapCouponError("coupons.find", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByCode resolves a code through the index and loads the coupon.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.provider == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Coupon{}, errors.New("coupon find by code: code is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", err)
	}

	snap, err := client.Collection(couponCodesCollection).Doc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", code), err)
		}
		return domain.Coupon{}, pfirestore.WrapError("coupons.findByCode", err)
	}
	var codeDoc couponCodeDocument
	if err := snap.DataTo(&codeDoc); err != nil {
		return domain.Coupon{}, fmt.Errorf("decode coupon code %s: %w", code, err)
	}

	return r.FindByID(ctx, codeDoc.CouponID)
}

// List pages coupons newest first.
func (r *CouponRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Coupon]{}, errors.New("coupon repository not initialised")
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
		return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
	}

	query := client.Collection(couponsCollection).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodePageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var coupons []domain.Coupon
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
		}
		var doc couponDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Coupon]{}, fmt.Errorf("decode coupon %s: %w", snap.Ref.ID, err)
		}
		coupons = append(coupons, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(coupons) > pageSize
	if hasMore {
		coupons = coupons[:pageSize]
	}
	var nextToken string
	if hasMore && len(coupons) > 0 {
		last := coupons[len(coupons)-1]
		encoded, err := encodePageToken(pageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Coupon]{
		Items:         coupons,
		NextPageToken: nextToken,
	}, nil
}

func wrapCouponError(op string, err error) error {
	if err == nil {
		return nil
	}
	var couponErr *repositories.CouponError
	if errors.As(err, &couponErr) {
		if couponErr.Op == "" {
			couponErr.Op = op
		}
		return couponErr
	}
	return pfirestore.WrapError(op, err)
}
