package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aimankhan01/grocery-backend/internal/catalog"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrShopNotFound    = errors.New("shop not found")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	query := `SELECT product_id, name, description, price, shop_id FROM products ORDER BY name`
	return r.queryProducts(ctx, query)
}

func (r *Repository) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	query := `SELECT product_id, name, description, price, shop_id FROM products WHERE product_id = ?`

	var p catalog.Product
	err := r.db.QueryRowContext(ctx, query, productID).
		Scan(&p.ProductID, &p.Name, &p.Description, &p.Price, &p.ShopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}

// SearchByShopName lists a shop's products, matching the shop by name the way
// the store browsing screen queries it.
func (r *Repository) SearchByShopName(ctx context.Context, shopName string) ([]catalog.Product, error) {
	query := `SELECT p.product_id, p.name, p.description, p.price, p.shop_id
	          FROM products p JOIN shops s ON s.shop_id = p.shop_id
	          WHERE s.name = ? ORDER BY p.name`
	return r.queryProducts(ctx, query, shopName)
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]catalog.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0)
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Description, &p.Price, &p.ShopID); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *catalog.Product) error {
	query := `INSERT INTO products (product_id, name, description, price, shop_id) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, p.ProductID, p.Name, p.Description, string(p.Price), p.ShopID); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, productID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = ?`, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) ListShops(ctx context.Context) ([]catalog.Shop, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT shop_id, name FROM shops ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query shops: %w", err)
	}
	defer rows.Close()

	shops := make([]catalog.Shop, 0)
	for rows.Next() {
		var s catalog.Shop
		if err := rows.Scan(&s.ShopID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan shop row: %w", err)
		}
		shops = append(shops, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return shops, nil
}

func (r *Repository) CreateShop(ctx context.Context, s *catalog.Shop) error {
	query := `INSERT INTO shops (shop_id, name) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, s.ShopID, s.Name); err != nil {
		return fmt.Errorf("insert shop: %w", err)
	}
	return nil
}

func (r *Repository) DeleteShop(ctx context.Context, shopID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shops WHERE shop_id = ?`, shopID)
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrShopNotFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
