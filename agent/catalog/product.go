package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

var ErrProductNotFound = errors.New("product not found")

const (
	defaultMaxResults = 10
	maxResults        = 20
)

// Product is one row of the store catalog.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          string            `bun:"id,pk" json:"id"`
	Name        string            `bun:"name,notnull" json:"name"`
	Category    string            `bun:"category" json:"category"`
	Color       string            `bun:"color" json:"color,omitempty"`
	Material    string            `bun:"material" json:"material,omitempty"`
	Price       float64           `bun:"price" json:"price"`
	Description string            `bun:"description" json:"description,omitempty"`
	InStock     bool              `bun:"in_stock" json:"in_stock"`
	Specs       map[string]string `bun:"specs,type:jsonb" json:"specifications,omitempty"`
}

type SearchQuery struct {
	Text       string
	Category   string
	MaxResults int
}

func (q SearchQuery) limit() int {
	switch {
	case q.MaxResults <= 0:
		return defaultMaxResults
	case q.MaxResults > maxResults:
		return maxResults
	default:
		return q.MaxResults
	}
}

func (q SearchQuery) terms() []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(q.Text)))
}

// Repository is the read side of the catalog used by the tools.
type Repository interface {
	Search(ctx context.Context, q SearchQuery) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
}

// BunRepository reads products from Postgres.
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) (*BunRepository, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &BunRepository{db: db}, nil
}

var searchColumns = []string{"name", "category", "color", "material", "description"}

// Search matches every term against any searchable column, in-stock products first.
func (r *BunRepository) Search(ctx context.Context, q SearchQuery) ([]Product, error) {
	products := make([]Product, 0, q.limit())
	sel := r.db.NewSelect().Model(&products)

	for _, term := range q.terms() {
		pattern := "%" + term + "%"
		sel = sel.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
			for _, col := range searchColumns {
				g = g.WhereOr("?TableAlias.? ILIKE ?", bun.Ident(col), pattern)
			}
			return g
		})
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		sel = sel.Where("?TableAlias.category ILIKE ?", category)
	}

	err := sel.
		OrderExpr("?TableAlias.in_stock DESC, ?TableAlias.name ASC").
		Limit(q.limit()).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (r *BunRepository) Get(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrProductNotFound
	}

	p := new(Product)
	err := r.db.NewSelect().Model(p).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// CreateSchema creates the products table when it does not exist.
func (r *BunRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().Model((*Product)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}
