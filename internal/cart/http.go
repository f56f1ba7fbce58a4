package cart

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"MiniShop/internal/catalog"
	"MiniShop/internal/session"
	"MiniShop/pkg/kit"
)

type Server struct {
	Catalog    catalog.Store
	Log        *zap.Logger
	SessionKey string
}

const (
	maxAddBody = 1 << 20

	mutationLimitPerMin = 30
	limitWindow         = 60 * time.Second
)

// Routes is meant to be mounted under /cart, behind the session
// middleware. Mutations share one per-IP limiter.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	limiter := kit.NewIPRateLimiter(mutationLimitPerMin, int(limitWindow.Seconds()))

	r.Get("/", s.detail)

	r.Group(func(mr chi.Router) {
		mr.Use(limiter.Middleware)
		mr.Post("/items/{id}", s.add)
		mr.Delete("/items/{id}", s.remove)
		mr.Post("/clear", s.clear)
	})

	return r
}

type addReq struct {
	Quantity *int `json:"quantity"`
	Override bool `json:"override"`
}

type summary struct {
	Count      int             `json:"count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusInternalServerError, "no session", nil)
		return
	}

	p, ok := s.lookupProduct(w, r, true)
	if !ok {
		return
	}

	req, err := decodeAddRequest(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	c := Open(sess, s.SessionKey)
	c.Add(p, quantity, req.Override)

	kit.WriteJSON(w, http.StatusOK, summary{Count: c.Count(), TotalPrice: c.TotalPrice()})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusInternalServerError, "no session", nil)
		return
	}

	// no availability check here: a line whose product went unavailable
	// after being added must still be removable
	p, ok := s.lookupProduct(w, r, false)
	if !ok {
		return
	}

	c := Open(sess, s.SessionKey)
	c.Remove(p)

	kit.WriteJSON(w, http.StatusOK, summary{Count: c.Count(), TotalPrice: c.TotalPrice()})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusInternalServerError, "no session", nil)
		return
	}

	c := Open(sess, s.SessionKey)
	c.Clear()

	kit.WriteJSON(w, http.StatusOK, summary{Count: 0, TotalPrice: decimal.Zero})
}

type detailResp struct {
	Items      []Item          `json:"items"`
	Count      int             `json:"count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusInternalServerError, "no session", nil)
		return
	}

	c := Open(sess, s.SessionKey)

	items, err := c.Items(r.Context(), s.Catalog)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("cart enrichment failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, detailResp{
		Items:      items,
		Count:      c.Count(),
		TotalPrice: c.TotalPrice(),
	})
}

// lookupProduct resolves the {id} route param against the catalog. A
// malformed id or an unknown product reads as 404 to the client; with
// requireAvailable, an unavailable product does too.
func (s *Server) lookupProduct(w http.ResponseWriter, r *http.Request, requireAvailable bool) (catalog.Product, bool) {
	raw := chi.URLParam(r, "id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": raw})
		return catalog.Product{}, false
	}

	p, found, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("catalog get failed", zap.Error(err), zap.Int64("id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return catalog.Product{}, false
	}
	if !found || (requireAvailable && !p.Available) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": raw})
		return catalog.Product{}, false
	}

	return p, true
}

// decodeAddRequest reads the optional JSON body of an add. No body at all
// means "one unit, accumulate".
func decodeAddRequest(w http.ResponseWriter, r *http.Request) (addReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAddBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req addReq
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return addReq{}, nil
		}
		return addReq{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return addReq{}, errors.New("extra data after json object")
	}

	return req, nil
}
