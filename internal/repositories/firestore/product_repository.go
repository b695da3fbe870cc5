package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/ordercraft/api/internal/domain"
	pfirestore "github.com/ordercraft/api/internal/platform/firestore"
	"github.com/ordercraft/api/internal/repositories"
)

// ProductRepository persists catalog products.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a ProductRepository backed by Firestore.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	products := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{provider: provider, products: products}, nil
}

// Insert stores a new product under its pre-generated ID.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.products == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product insert: id is required")
	}

	ref, err := r.products.DocumentRef(ctx, product.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newProductDocument(product)); err != nil {
		return pfirestore.WrapError("products.insert", err)
	}
	return nil
}

// Update overwrites the stored product.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.products == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product update: id is required")
	}
	_, err := r.products.Set(ctx, product.ID, newProductDocument(product))
	return err
}

// FindByID loads a product by its ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// productPageToken carries the sort values for the three supported orderings.
// Which values apply is determined by the filter accompanying the token.
type productPageToken struct {
	Name      string    `json:"name,omitempty"`
	Price     int64     `json:"price,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// List returns a page of products matching the filter. Name matching is a
// prefix match. Price bounds combined with a name filter are applied in
// memory because Firestore allows inequalities on a single field only.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductListFilter, pager domain.Pagination) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
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
		return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
	}

	query := client.Collection(productsCollection).Query
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		query = query.Where("brand", "==", brand)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category", "==", category)
	}

	namePrefix := strings.TrimSpace(filter.NameContains)
	priceOrdered := namePrefix == "" && (filter.MinPrice > 0 || filter.MaxPrice > 0)
	switch {
	case namePrefix != "":
		query = query.
			Where("name", ">=", namePrefix).
			Where("name", "<=", namePrefix+"\uf8ff").
			OrderBy("name", firestore.Asc)
	case priceOrdered:
		if filter.MinPrice > 0 {
			query = query.Where("price", ">=", filter.MinPrice)
		}
		if filter.MaxPrice > 0 {
			query = query.Where("price", "<=", filter.MaxPrice)
		}
		query = query.OrderBy("price", firestore.Asc)
	default:
		query = query.OrderBy("createdAt", firestore.Desc)
	}
	query = query.OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		var decoded productPageToken
		if err := decodeListToken(token, &decoded); err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		switch {
		case namePrefix != "":
			query = query.StartAfter(decoded.Name, decoded.ID)
		case priceOrdered:
			query = query.StartAfter(decoded.Price, decoded.ID)
		default:
			query = query.StartAfter(decoded.CreatedAt, decoded.ID)
		}
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		product := doc.toDomain(snap.Ref.ID)
		if namePrefix != "" && !priceInRange(product.Price, filter.MinPrice, filter.MaxPrice) {
			continue
		}
		products = append(products, product)
	}

	hasMore := len(products) > pageSize
	if hasMore {
		products = products[:pageSize]
	}
	var nextToken string
	if hasMore && len(products) > 0 {
		last := products[len(products)-1]
		encoded, err := encodeListToken(productPageToken{
			Name:      last.Name,
			Price:     last.Price,
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Product]{
		Items:         products,
		NextPageToken: nextToken,
	}, nil
}

func priceInRange(price, min, max int64) bool {
	if min > 0 && price < min {
		return false
	}
	if max > 0 && price > max {
		return false
	}
	return true
}
