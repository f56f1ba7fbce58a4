package shop_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MiniShop/internal/catalog"
	"MiniShop/internal/session"
	"MiniShop/internal/shop"
)

func newShopTS(t *testing.T) (*httptest.Server, *catalog.MemStore) {
	t.Helper()

	store := catalog.NewMemStore()
	store.Put(catalog.Product{ID: 5, Title: "Tea", Slug: "tea", Category: "grocery", Price: decimal.RequireFromString("25.50"), Available: true})
	store.Put(catalog.Product{ID: 8, Title: "Coffee", Slug: "coffee", Category: "grocery", Price: decimal.RequireFromString("15.00"), Available: true})

	sessions := &session.Manager{
		Store:  session.NewMemStore(),
		Tokens: session.NewTokenMaker("test-secret"),
		TTL:    time.Hour,
		Log:    zap.NewNop(),
	}

	h := shop.NewHandler(
		shop.Deps{Catalog: store, Sessions: sessions},
		shop.HTTPDeps{Log: zap.NewNop(), Service: "shop"},
	)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

type summaryResp struct {
	Count      int    `json:"count"`
	TotalPrice string `json:"total_price"`
}

type detailResp struct {
	Items []struct {
		ProductID string `json:"product_id"`
		Product   struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"product"`
		Quantity   int    `json:"quantity"`
		Price      string `json:"price"`
		TotalPrice string `json:"total_price"`
	} `json:"items"`
	Count      int    `json:"count"`
	TotalPrice string `json:"total_price"`
}

func requirePrice(t *testing.T, want, got string) {
	t.Helper()
	if !decimal.RequireFromString(want).Equal(decimal.RequireFromString(got)) {
		t.Fatalf("price: want %s, got %s", want, got)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := newShopTS(t)
	c := newClient(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, c, http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestProductBrowsing(t *testing.T) {
	ts, _ := newShopTS(t)
	c := newClient(t)

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/products?category=grocery", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d body %s", resp.StatusCode, raw)
	}

	var products []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("want 2 grocery products, got %d", len(products))
	}

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/products/999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown product: status %d", resp.StatusCode)
	}
}

func TestCartFlow(t *testing.T) {
	ts, _ := newShopTS(t)
	c := newClient(t)

	// empty cart
	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/cart", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("empty cart: status %d body %s", resp.StatusCode, raw)
	}
	var d detailResp
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Count != 0 || len(d.Items) != 0 {
		t.Fatalf("empty cart: got %+v", d)
	}

	// add 3 tea, then 2 more
	resp, raw = doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d body %s", resp.StatusCode, raw)
	}
	resp, raw = doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d body %s", resp.StatusCode, raw)
	}

	var sum summaryResp
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 5 {
		t.Fatalf("count: want 5, got %d", sum.Count)
	}
	requirePrice(t, "127.50", sum.TotalPrice)

	// override down to 2, then add coffee with the bare default quantity
	resp, _ = doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 2, "override": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("override: status %d", resp.StatusCode)
	}
	resp, raw = doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/8", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add default: status %d body %s", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 3 {
		t.Fatalf("count: want 3, got %d", sum.Count)
	}
	requirePrice(t, "66.00", sum.TotalPrice)

	// detail view: insertion order, line totals
	_, raw = doJSON(t, c, http.MethodGet, ts.URL+"/cart", nil)
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Items) != 2 || d.Items[0].ProductID != "5" || d.Items[1].ProductID != "8" {
		t.Fatalf("items: got %+v", d.Items)
	}
	if d.Items[0].Product.Title != "Tea" {
		t.Fatalf("enrichment: got %+v", d.Items[0].Product)
	}
	requirePrice(t, "51.00", d.Items[0].TotalPrice)
	requirePrice(t, "66.00", d.TotalPrice)

	// remove tea
	resp, raw = doJSON(t, c, http.MethodDelete, ts.URL+"/cart/items/5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 1 {
		t.Fatalf("count after remove: want 1, got %d", sum.Count)
	}

	// clear
	resp, raw = doJSON(t, c, http.MethodPost, ts.URL+"/cart/clear", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 0 {
		t.Fatalf("count after clear: want 0, got %d", sum.Count)
	}

	_, raw = doJSON(t, c, http.MethodGet, ts.URL+"/cart", nil)
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Count != 0 || len(d.Items) != 0 {
		t.Fatalf("cart after clear: got %+v", d)
	}
}

func TestCartIsPerSession(t *testing.T) {
	ts, _ := newShopTS(t)

	alice := newClient(t)
	bob := newClient(t)

	resp, _ := doJSON(t, alice, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d", resp.StatusCode)
	}

	_, raw := doJSON(t, bob, http.MethodGet, ts.URL+"/cart", nil)
	var d detailResp
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Count != 0 {
		t.Fatalf("bob sees alice's cart: %+v", d)
	}

	_, raw = doJSON(t, alice, http.MethodGet, ts.URL+"/cart", nil)
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Count != 2 {
		t.Fatalf("alice lost her cart: %+v", d)
	}
}

func TestCartPriceSticksAcrossCatalogChange(t *testing.T) {
	ts, store := newShopTS(t)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d", resp.StatusCode)
	}

	store.Put(catalog.Product{ID: 5, Title: "Tea", Slug: "tea", Category: "grocery", Price: decimal.RequireFromString("30.00"), Available: true})

	_, raw := doJSON(t, c, http.MethodGet, ts.URL+"/cart", nil)
	var d detailResp
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	requirePrice(t, "51.00", d.TotalPrice)
	requirePrice(t, "25.50", d.Items[0].Price)
}

func TestMetricsEndpointFollowsEnabledFlag(t *testing.T) {
	sessions := &session.Manager{
		Store:  session.NewMemStore(),
		Tokens: session.NewTokenMaker("test-secret"),
		TTL:    time.Hour,
		Log:    zap.NewNop(),
	}
	deps := shop.Deps{Catalog: catalog.NewMemStore(), Sessions: sessions}

	for _, tc := range []struct {
		name    string
		enabled bool
		token   string
		auth    string
		want    int
	}{
		{"disabled", false, "tok", "Bearer tok", http.StatusNotFound},
		{"enabled with token", true, "tok", "Bearer tok", http.StatusOK},
		{"enabled wrong token", true, "tok", "Bearer nope", http.StatusForbidden},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := shop.NewHandler(deps, shop.HTTPDeps{
				Log:            zap.NewNop(),
				Service:        "shop",
				Registry:       prometheus.NewRegistry(),
				MetricsEnabled: tc.enabled,
				MetricsToken:   tc.token,
			})
			ts := httptest.NewServer(h)
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			req.Header.Set("Authorization", tc.auth)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tc.want {
				t.Fatalf("status: want %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestCartRemoveWorksAfterProductGoesUnavailable(t *testing.T) {
	ts, store := newShopTS(t)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add: status %d", resp.StatusCode)
	}

	store.Put(catalog.Product{ID: 5, Title: "Tea", Slug: "tea", Category: "grocery", Price: decimal.RequireFromString("25.50"), Available: false})

	// the line must still be removable, and adding must now 404
	resp, raw := doJSON(t, c, http.MethodDelete, ts.URL+"/cart/items/5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove unavailable: status %d body %s", resp.StatusCode, raw)
	}

	var sum summaryResp
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 0 {
		t.Fatalf("count after remove: want 0, got %d", sum.Count)
	}
	requirePrice(t, "0", sum.TotalPrice)

	_, raw = doJSON(t, c, http.MethodGet, ts.URL+"/cart", nil)
	var d detailResp
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Count != 0 || len(d.Items) != 0 {
		t.Fatalf("cart after removing unavailable line: got %+v", d)
	}

	resp, _ = doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("add unavailable: status %d", resp.StatusCode)
	}
}

func TestCartAddUnknownProduct(t *testing.T) {
	ts, _ := newShopTS(t)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/999", map[string]any{"quantity": 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown product add: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, c, http.MethodPost, ts.URL+"/cart/items/5", map[string]any{"quantity": 1, "nope": true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d", resp.StatusCode)
	}
}
