// Command seed loads a small sample catalog into the configured database.
// Rows that already exist are left alone, so it is safe to run repeatedly.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal"
	"github.com/dukerupert/shopfront/internal/catalog"
	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/postgres"
)

type seedSKU struct {
	code      string
	name      string
	price     string
	inventory int
	attrs     domain.Attributes
}

type seedProduct struct {
	name        string
	description string
	price       string
	skus        []seedSKU
}

type seedCategory struct {
	name        string
	description string
	products    []seedProduct
}

var sampleCatalog = []seedCategory{
	{
		name:        "Coffee",
		description: "Single origin and blended whole bean coffee",
		products: []seedProduct{
			{
				name:        "Ethiopia Yirgacheffe",
				description: "Washed process with notes of jasmine, bergamot and lemon.",
				price:       "18.50",
				skus: []seedSKU{
					{"ETH-YIR-250", "250g bag", "18.50", 40, domain.Attributes{{Key: "size", Value: "250g"}, {Key: "grind", Value: "whole bean"}}},
					{"ETH-YIR-1KG", "1kg bag", "62.00", 12, domain.Attributes{{Key: "size", Value: "1kg"}, {Key: "grind", Value: "whole bean"}}},
				},
			},
			{
				name:        "House Espresso",
				description: "A chocolate forward blend built for milk drinks.",
				price:       "16.00",
				skus: []seedSKU{
					{"HOUSE-ESP-250", "250g bag", "16.00", 80, domain.Attributes{{Key: "size", Value: "250g"}}},
				},
			},
		},
	},
	{
		name:        "Equipment",
		description: "Brewers, grinders and accessories",
		products: []seedProduct{
			{
				name:        "Pour Over Dripper",
				description: "Ceramic cone dripper that fits most mugs and carafes.",
				price:       "24.00",
				skus: []seedSKU{
					{"DRIP-CER-WHT", "White", "24.00", 15, domain.Attributes{{Key: "color", Value: "white"}}},
					{"DRIP-CER-BLK", "Black", "24.00", 0, domain.Attributes{{Key: "color", Value: "black"}}},
				},
			},
		},
	},
}

func run() error {
	ctx := context.Background()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	if cfg.Store.Driver != "postgres" {
		return fmt.Errorf("seed requires STORE_DRIVER=postgres, got %q", cfg.Store.Driver)
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	svc := catalog.NewService(postgres.New(pool), catalog.WithLogger(logger))
	return seed(ctx, svc, logger)
}

func seed(ctx context.Context, svc domain.CatalogService, logger *slog.Logger) error {
	for _, c := range sampleCatalog {
		category, err := svc.CreateCategory(ctx, domain.CategoryInput{
			Name:        &c.name,
			Description: &c.description,
		})
		if domain.ErrorCode(err) == domain.ECONFLICT {
			logger.Info("Category exists, skipping", "name", c.name)
			continue
		}
		if err != nil {
			return fmt.Errorf("create category %q: %w", c.name, err)
		}

		for _, p := range c.products {
			if err := seedProductTree(ctx, svc, category.ID, p); err != nil {
				return err
			}
			logger.Info("Seeded product", "category", c.name, "product", p.name, "skus", len(p.skus))
		}
	}
	return nil
}

func seedProductTree(ctx context.Context, svc domain.CatalogService, categoryID uuid.UUID, p seedProduct) error {
	price := decimal.RequireFromString(p.price)
	images := []string{}
	product, err := svc.CreateProduct(ctx, domain.ProductInput{
		Name:        &p.name,
		Description: &p.description,
		CategoryID:  &categoryID,
		BasePrice:   &price,
		Images:      &images,
	})
	if err != nil {
		return fmt.Errorf("create product %q: %w", p.name, err)
	}

	for _, s := range p.skus {
		skuPrice := decimal.RequireFromString(s.price)
		if _, err := svc.CreateSKU(ctx, product.ID, domain.SKUInput{
			Code:       &s.code,
			Name:       &s.name,
			Price:      &skuPrice,
			Inventory:  &s.inventory,
			Attributes: &s.attrs,
		}); err != nil {
			return fmt.Errorf("create sku %q: %w", s.code, err)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
