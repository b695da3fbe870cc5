package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ordercraft/api/internal/domain"
	"github.com/ordercraft/api/internal/platform/auth"
	"github.com/ordercraft/api/internal/platform/httpx"
	"github.com/ordercraft/api/internal/repositories"
	"github.com/ordercraft/api/internal/services"
)

// CouponHandlers exposes coupon administration and the read-only preview
// endpoint. Only the order transaction may consume a coupon use.
type CouponHandlers struct {
	authn   *auth.Authenticator
	coupons services.CouponService
}

// NewCouponHandlers constructs a new CouponHandlers instance.
func NewCouponHandlers(authn *auth.Authenticator, coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{
		authn:   authn,
		coupons: coupons,
	}
}

// Routes registers the /coupons endpoints.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireFirebaseAuth())
		}
		user.Post("/apply", h.previewDiscount)
	})

	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
		}
		admin.Post("/", h.createCoupon)
		admin.Get("/", h.listCoupons)
		admin.Get("/{couponId}", h.getCoupon)
	})
}

func (h *CouponHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var req createCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	expiresAt, err := parseCouponExpiry(req.ExpiresAt)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	coupon, err := h.coupons.Create(ctx, services.CreateCouponCommand{
		Code:          req.Code,
		DiscountType:  domain.DiscountType(strings.ToUpper(strings.TrimSpace(req.DiscountType))),
		DiscountValue: req.DiscountValue,
		ExpiresAt:     expiresAt,
		UsageLimit:    req.UsageLimit,
	})
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, buildCouponPayload(coupon))
}

func (h *CouponHandlers) getCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	coupon, err := h.coupons.Get(ctx, chi.URLParam(r, "couponId"))
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildCouponPayload(coupon))
}

func (h *CouponHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := paginationFromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.coupons.List(ctx, pager)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	items := make([]couponPayload, len(page.Items))
	for i, coupon := range page.Items {
		items[i] = buildCouponPayload(coupon)
	}
	writeJSONResponse(w, http.StatusOK, couponListResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *CouponHandlers) previewDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var req previewDiscountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	preview, err := h.coupons.PreviewDiscount(ctx, services.PreviewDiscountCommand{
		Code:   req.Code,
		Amount: req.Amount,
	})
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, previewDiscountResponse{
		Code:             preview.Coupon.Code,
		DiscountType:     string(preview.Coupon.DiscountType),
		DiscountValue:    preview.Coupon.DiscountValue,
		Amount:           preview.Amount,
		Discount:         preview.Discount,
		DiscountedAmount: preview.DiscountedAmount,
	})
}

func parseCouponExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("expires_at is required")
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("expires_at must be an RFC 3339 timestamp")
	}
	return expiresAt.UTC(), nil
}

type createCouponRequest struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue int64  `json:"discount_value"`
	ExpiresAt     string `json:"expires_at"`
	UsageLimit    int64  `json:"usage_limit"`
}

type previewDiscountRequest struct {
	Code   string `json:"coupon_code"`
	Amount int64  `json:"total_amount"`
}

type previewDiscountResponse struct {
	Code             string `json:"coupon_code"`
	DiscountType     string `json:"discount_type"`
	DiscountValue    int64  `json:"discount_value"`
	Amount           int64  `json:"total_amount"`
	Discount         int64  `json:"discount"`
	DiscountedAmount int64  `json:"discounted_amount"`
}

type couponListResponse struct {
	Items         []couponPayload `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type couponPayload struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue int64  `json:"discount_value"`
	ExpiresAt     string `json:"expires_at"`
	UsageLimit    int64  `json:"usage_limit"`
	Used          int64  `json:"used"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func buildCouponPayload(coupon services.Coupon) couponPayload {
	return couponPayload{
		ID:            coupon.ID,
		Code:          coupon.Code,
		DiscountType:  string(coupon.DiscountType),
		DiscountValue: coupon.DiscountValue,
		ExpiresAt:     formatTime(coupon.ExpiresAt),
		UsageLimit:    coupon.UsageLimit,
		Used:          coupon.Used,
		CreatedAt:     formatTime(coupon.CreatedAt),
		UpdatedAt:     formatTime(coupon.UpdatedAt),
	}
}

func writeCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponCodeExists):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_code_exists", "a coupon with this code already exists", http.StatusConflict))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponExpired):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_expired", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCouponLimitReached):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_limit_reached", err.Error(), http.StatusUnprocessableEntity))
	default:
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon storage unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to process coupon request", http.StatusInternalServerError))
	}
}
