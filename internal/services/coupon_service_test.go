package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/repositories"
)

type fakeCouponRepository struct {
	created   domain.Coupon
	createErr error

	byID   map[string]domain.Coupon
	byCode map[string]domain.Coupon

	listPage domain.CursorPage[domain.Coupon]
	listedBy domain.Pagination
}

func (f *fakeCouponRepository) Create(ctx context.Context, coupon domain.Coupon) error {
	f.created = coupon
	return f.createErr
}

func (f *fakeCouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if c, ok := f.byID[couponID]; ok {
		return c, nil
	}
	return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, "not found", nil)
}

func (f *fakeCouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if c, ok := f.byCode[strings.ToUpper(code)]; ok {
		return c, nil
	}
	return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, "not found", nil)
}

func (f *fakeCouponRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Coupon], error) {
	f.listedBy = pager
	return f.listPage, nil
}

func TestCouponServiceCreate(t *testing.T) {
	repo := &fakeCouponRepository{}
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, err := NewCouponService(CouponServiceDeps{
		Coupons: repo,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}

	coupon, err := svc.Create(context.Background(), CreateCouponCommand{
		Code:          " summer20 ",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 20,
		ExpiresAt:     now.Add(48 * time.Hour),
		UsageLimit:    100,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if coupon.Code != "SUMMER20" {
		t.Fatalf("expected uppercase trimmed code, got %q", coupon.Code)
	}
	if !strings.HasPrefix(coupon.ID, "cpn_") {
		t.Fatalf("expected cpn_ prefixed id, got %s", coupon.ID)
	}
	if repo.created.Code != "SUMMER20" {
		t.Fatalf("expected coupon persisted, got %+v", repo.created)
	}
}

func TestCouponServiceCreateValidation(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, err := NewCouponService(CouponServiceDeps{
		Coupons: &fakeCouponRepository{},
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}

	future := now.Add(time.Hour)
	cases := []CreateCouponCommand{
		{DiscountType: domain.DiscountPercentage, DiscountValue: 10, ExpiresAt: future, UsageLimit: 1},
		{Code: "X", DiscountType: "HALF_OFF", DiscountValue: 10, ExpiresAt: future, UsageLimit: 1},
		{Code: "X", DiscountType: domain.DiscountPercentage, DiscountValue: 0, ExpiresAt: future, UsageLimit: 1},
		{Code: "X", DiscountType: domain.DiscountPercentage, DiscountValue: 150, ExpiresAt: future, UsageLimit: 1},
		{Code: "X", DiscountType: domain.DiscountPercentage, DiscountValue: 10, ExpiresAt: now.Add(-time.Hour), UsageLimit: 1},
		{Code: "X", DiscountType: domain.DiscountPercentage, DiscountValue: 10, ExpiresAt: future, UsageLimit: 0},
	}
	for i, cmd := range cases {
		if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, ErrCouponInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestCouponServiceCreateDuplicateCode(t *testing.T) {
	repo := &fakeCouponRepository{
		createErr: repositories.NewCouponError(repositories.CouponErrorCodeExists, "taken", nil),
	}
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateCouponCommand{
		Code:          "TAKEN",
		DiscountType:  domain.DiscountFixedAmount,
		DiscountValue: 500,
		ExpiresAt:     now.Add(time.Hour),
		UsageLimit:    1,
	})
	if !errors.Is(err, ErrCouponCodeExists) {
		t.Fatalf("expected code exists error, got %v", err)
	}
}

func TestCouponServiceList(t *testing.T) {
	repo := &fakeCouponRepository{
		listPage: domain.CursorPage[domain.Coupon]{
			Items:         []domain.Coupon{{ID: "cpn_1", Code: "WELCOME10"}},
			NextPageToken: "tok-next",
		},
	}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}

	page, err := svc.List(context.Background(), Pagination{PageSize: 25, PageToken: "tok-prev"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.listedBy.PageSize != 25 || repo.listedBy.PageToken != "tok-prev" {
		t.Fatalf("unexpected pagination forwarded: %+v", repo.listedBy)
	}
	if len(page.Items) != 1 || page.NextPageToken != "tok-next" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestCouponServicePreviewDiscount(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeCouponRepository{
		byCode: map[string]domain.Coupon{
			"PCT": {
				ID:            "cpn_pct",
				Code:          "PCT",
				DiscountType:  domain.DiscountPercentage,
				DiscountValue: 15,
				ExpiresAt:     now.Add(time.Hour),
				UsageLimit:    10,
			},
			"FIXED": {
				ID:            "cpn_fixed",
				Code:          "FIXED",
				DiscountType:  domain.DiscountFixedAmount,
				DiscountValue: 5000,
				ExpiresAt:     now.Add(time.Hour),
				UsageLimit:    10,
			},
			"EXPIRED": {
				ID:            "cpn_expired",
				Code:          "EXPIRED",
				DiscountType:  domain.DiscountPercentage,
				DiscountValue: 10,
				ExpiresAt:     now.Add(-time.Hour),
				UsageLimit:    10,
			},
			"SPENT": {
				ID:            "cpn_spent",
				Code:          "SPENT",
				DiscountType:  domain.DiscountPercentage,
				DiscountValue: 10,
				ExpiresAt:     now.Add(time.Hour),
				UsageLimit:    3,
				Used:          3,
			},
		},
	}
	svc, err := NewCouponService(CouponServiceDeps{Coupons: repo, Clock: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}
	ctx := context.Background()

	// Percentage discounts truncate toward zero in integer cents.
	preview, err := svc.PreviewDiscount(ctx, PreviewDiscountCommand{Code: "pct", Amount: 999})
	if err != nil {
		t.Fatalf("PreviewDiscount: %v", err)
	}
	if preview.Discount != 149 {
		t.Fatalf("expected discount 149, got %d", preview.Discount)
	}
	if preview.DiscountedAmount != 850 {
		t.Fatalf("expected discounted amount 850, got %d", preview.DiscountedAmount)
	}

	// Fixed discounts are capped at the amount.
	preview, err = svc.PreviewDiscount(ctx, PreviewDiscountCommand{Code: "FIXED", Amount: 3000})
	if err != nil {
		t.Fatalf("PreviewDiscount fixed: %v", err)
	}
	if preview.Discount != 3000 || preview.DiscountedAmount != 0 {
		t.Fatalf("expected full cap, got discount=%d remaining=%d", preview.Discount, preview.DiscountedAmount)
	}

	if _, err := svc.PreviewDiscount(ctx, PreviewDiscountCommand{Code: "EXPIRED", Amount: 1000}); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
	if _, err := svc.PreviewDiscount(ctx, PreviewDiscountCommand{Code: "SPENT", Amount: 1000}); !errors.Is(err, ErrCouponLimitReached) {
		t.Fatalf("expected limit reached error, got %v", err)
	}
	if _, err := svc.PreviewDiscount(ctx, PreviewDiscountCommand{Code: "MISSING", Amount: 1000}); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
