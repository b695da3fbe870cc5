package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ordercraft/api/internal/platform/config"
	"github.com/ordercraft/api/internal/platform/events"
	"github.com/ordercraft/api/internal/repositories"
	"github.com/ordercraft/api/internal/services"
)

// Registry is the repository surface the container wires services against.
// The Firestore registry satisfies it in production; tests can supply fakes.
type Registry interface {
	Products() repositories.ProductRepository
	Orders() repositories.OrderRepository
	Coupons() repositories.CouponRepository
	Reviews() repositories.ReviewRepository
	Carts() repositories.CartRepository
	Users() repositories.UserRepository
	Health() repositories.HealthRepository
	Close(ctx context.Context) error
}

// Services bundles the service-layer contracts the handlers rely upon.
type Services struct {
	Orders  services.OrderService
	Coupons services.CouponService
	Reviews services.ReviewService
	Catalog services.CatalogService
	Cart    services.CartService
	Users   services.UserService
	System  services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories Registry
	Services     Services
}

// ContainerDeps carries the externally constructed infrastructure the
// container assembles services from.
type ContainerDeps struct {
	Registry Registry
	Events   events.Publisher
	Build    services.BuildInfo
}

// NewContainer constructs the runtime dependency graph.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Build.StartedAt.IsZero() {
		deps.Build.StartedAt = time.Now().UTC()
	}

	svc, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases repository clients and any other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps) (Services, error) {
	reg := deps.Registry
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Clock:    time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   reg.Orders(),
		Products: reg.Products(),
		Clock:    time.Now,
		Events:   deps.Events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: reg.Coupons(),
		Clock:   time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build coupon service: %w", err)
	}
	svc.Coupons = couponSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews: reg.Reviews(),
		Users:   reg.Users(),
		Clock:   time.Now,
		Events:  deps.Events,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Clock:    time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users: reg.Users(),
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            time.Now,
		Build:            deps.Build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
