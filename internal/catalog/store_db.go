package catalog

import (
	"context"
	"database/sql"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, title, slug, category, price, available
			FROM products
			WHERE id = $1
		`, id).Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.Price, &p.Available)
	})

	if err == sql.ErrNoRows {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var out []Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, title, slug, category, price, available
			FROM products
			WHERE id = ANY($1)
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, len(ids))
		return scanProducts(rows, &out)
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListAvailable(ctx context.Context, category string) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, title, slug, category, price, available
			FROM products
			WHERE available AND ($1 = '' OR category = $1)
			ORDER BY id ASC
		`, category)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		return scanProducts(rows, &out)
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Categories(ctx context.Context) ([]string, error) {
	var out []string

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT DISTINCT category
			FROM products
			ORDER BY category ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]string, 0, 8)
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanProducts(rows *sql.Rows, out *[]Product) error {
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.Price, &p.Available); err != nil {
			return err
		}
		*out = append(*out, p)
	}
	return rows.Err()
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
