package pagination

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", DefaultPageSize, params.PageSize)
	}
	if params.PageToken != "" || len(params.Orders) != 0 || len(params.Filters) != 0 {
		t.Fatalf("expected empty params, got %+v", params)
	}
}

func TestParsePageSizeBounds(t *testing.T) {
	values := url.Values{"pageSize": []string{"500"}}
	params, err := Parse(values, Options{MaxPageSize: 100})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 100 {
		t.Fatalf("expected capped page size 100, got %d", params.PageSize)
	}

	for _, raw := range []string{"0", "-5", "abc"} {
		if _, err := Parse(url.Values{"pageSize": []string{raw}}, Options{}); !errors.Is(err, ErrInvalidPageSize) {
			t.Fatalf("pageSize %q: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestParseOrderBy(t *testing.T) {
	values := url.Values{"orderBy": []string{"createdAt desc,price"}}
	params, err := Parse(values, Options{AllowedOrderFields: []string{"createdAt", "price"}})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(params.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(params.Orders))
	}
	if params.Orders[0].Field != "createdAt" || !params.Orders[0].Desc {
		t.Fatalf("unexpected first order %+v", params.Orders[0])
	}
	if params.Orders[1].Field != "price" || params.Orders[1].Desc {
		t.Fatalf("unexpected second order %+v", params.Orders[1])
	}

	if _, err := Parse(url.Values{"orderBy": []string{"secret"}}, Options{AllowedOrderFields: []string{"createdAt"}}); !errors.Is(err, ErrInvalidOrderBy) {
		t.Fatalf("expected ErrInvalidOrderBy for disallowed field, got %v", err)
	}
}

func TestParseFilters(t *testing.T) {
	values := url.Values{"filter": []string{"brand==acme", "price>=1000"}}
	params, err := Parse(values, Options{AllowedFilterFields: []string{"brand", "price"}})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(params.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(params.Filters))
	}
	if params.Filters[0] != (Filter{Field: "brand", Op: OperatorEqual, Value: "acme"}) {
		t.Fatalf("unexpected filter %+v", params.Filters[0])
	}
	if params.Filters[1] != (Filter{Field: "price", Op: OperatorGreaterEqual, Value: "1000"}) {
		t.Fatalf("unexpected filter %+v", params.Filters[1])
	}

	if _, err := Parse(url.Values{"filter": []string{"brand==acme"}}, Options{}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter when filtering unsupported, got %v", err)
	}
	if _, err := Parse(url.Values{"filter": []string{"noop"}}, Options{AllowedFilterFields: []string{"noop"}}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for missing operator, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(Cursor{StartAfter: []any{"prd_123", float64(42)}})
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	cursor, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken returned error: %v", err)
	}
	if len(cursor.StartAfter) != 2 || cursor.StartAfter[0] != "prd_123" {
		t.Fatalf("unexpected cursor %+v", cursor)
	}

	if _, err := DecodeToken("%%%not-base64%%%"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}

	empty, err := EncodeToken(Cursor{})
	if err != nil || empty != "" {
		t.Fatalf("expected empty token for empty cursor, got %q err %v", empty, err)
	}
}
