package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/repositories"
)

const couponIDPrefix = "cpn_"

var (
	// ErrCouponInvalidInput indicates validation failures for coupon operations.
	ErrCouponInvalidInput = errors.New("coupon: invalid input")
	// ErrCouponNotFound indicates the coupon could not be located.
	ErrCouponNotFound = errors.New("coupon: not found")
	// ErrCouponCodeExists indicates the code is already registered.
	ErrCouponCodeExists = errors.New("coupon: code already exists")
	// ErrCouponExpired indicates the coupon's expiry has passed.
	ErrCouponExpired = errors.New("coupon: expired")
	// ErrCouponLimitReached indicates the usage counter hit its limit.
	ErrCouponLimitReached = errors.New("coupon: usage limit reached")
)

// CouponServiceDeps bundles collaborators required to construct a CouponService.
type CouponServiceDeps struct {
	Coupons     repositories.CouponRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type couponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
	newID   func() string
}

var _ CouponService = (*couponService)(nil)

// NewCouponService wires dependencies into a concrete CouponService implementation.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return couponIDPrefix + ulid.Make().String()
		}
	}

	return &couponService{
		coupons: deps.Coupons,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *couponService) Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if !cmd.DiscountType.Valid() {
		return Coupon{}, fmt.Errorf("%w: unknown discount type %q", ErrCouponInvalidInput, cmd.DiscountType)
	}
	if cmd.DiscountValue <= 0 {
		return Coupon{}, fmt.Errorf("%w: discount value must be positive", ErrCouponInvalidInput)
	}
	if cmd.DiscountType == domain.DiscountPercentage && cmd.DiscountValue > 100 {
		return Coupon{}, fmt.Errorf("%w: percentage discount cannot exceed 100", ErrCouponInvalidInput)
	}
	if cmd.UsageLimit <= 0 {
		return Coupon{}, fmt.Errorf("%w: usage limit must be positive", ErrCouponInvalidInput)
	}

	now := s.clock()
	if !cmd.ExpiresAt.After(now) {
		return Coupon{}, fmt.Errorf("%w: expiry must be in the future", ErrCouponInvalidInput)
	}

	coupon := domain.Coupon{
		ID:            s.newID(),
		Code:          code,
		DiscountType:  cmd.DiscountType,
		DiscountValue: cmd.DiscountValue,
		ExpiresAt:     cmd.ExpiresAt.UTC(),
		UsageLimit:    cmd.UsageLimit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.coupons.Create(ctx, coupon); err != nil {
		return Coupon{}, s.mapCouponError(err)
	}
	return coupon, nil
}

func (s *couponService) Get(ctx context.Context, couponID string) (Coupon, error) {
	if strings.TrimSpace(couponID) == "" {
		return Coupon{}, fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	coupon, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return Coupon{}, s.mapCouponError(err)
	}
	return coupon, nil
}

func (s *couponService) List(ctx context.Context, pager Pagination) (domain.CursorPage[Coupon], error) {
	page, err := s.coupons.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Coupon]{}, s.mapCouponError(err)
	}
	return page, nil
}

// PreviewDiscount runs the same validation as redemption but never touches the
// usage counter. The asymmetry is deliberate: a preview must not consume uses.
func (s *couponService) PreviewDiscount(ctx context.Context, cmd PreviewDiscountCommand) (DiscountPreview, error) {
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" {
		return DiscountPreview{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if cmd.Amount < 0 {
		return DiscountPreview{}, fmt.Errorf("%w: amount must not be negative", ErrCouponInvalidInput)
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return DiscountPreview{}, s.mapCouponError(err)
	}

	now := s.clock()
	if coupon.Expired(now) {
		return DiscountPreview{}, fmt.Errorf("%w: %s", ErrCouponExpired, code)
	}
	if coupon.Exhausted() {
		return DiscountPreview{}, fmt.Errorf("%w: %s", ErrCouponLimitReached, code)
	}

	discount := coupon.Discount(cmd.Amount)
	return DiscountPreview{
		Coupon:           coupon,
		Amount:           cmd.Amount,
		Discount:         discount,
		DiscountedAmount: cmd.Amount - discount,
	}, nil
}

func (s *couponService) mapCouponError(err error) error {
	if err == nil {
		return nil
	}
	var couponErr *repositories.CouponError
	if errors.As(err, &couponErr) {
		return mapCouponRepositoryError(couponErr)
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrCouponNotFound, err)
	}
	return err
}

func mapCouponRepositoryError(couponErr *repositories.CouponError) error {
	switch couponErr.Code {
	case repositories.CouponErrorNotFound:
		return fmt.Errorf("%w: %s", ErrCouponNotFound, couponErr.Message)
	case repositories.CouponErrorCodeExists:
		return fmt.Errorf("%w: %s", ErrCouponCodeExists, couponErr.Message)
	case repositories.CouponErrorExpired:
		return fmt.Errorf("%w: %s", ErrCouponExpired, couponErr.Message)
	case repositories.CouponErrorExhausted:
		return fmt.Errorf("%w: %s", ErrCouponLimitReached, couponErr.Message)
	}
	return couponErr
}
