package main

import (
	"context"
	_ "embed"
	"fmt"

	"salesquote_backend/migrations"
	"salesquote_backend/platform/config"
	"salesquote_backend/platform/db"
	"salesquote_backend/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

type fixtures struct {
	Accounts []struct {
		Name   string `yaml:"name"`
		Domain string `yaml:"domain"`
	} `yaml:"accounts"`
	Pricebooks []struct {
		Name     string `yaml:"name"`
		Currency string `yaml:"currency"`
		Default  bool   `yaml:"default"`
	} `yaml:"pricebooks"`
	SKUs []skuFixture `yaml:"skus"`
}

type skuFixture struct {
	Code       string           `yaml:"code"`
	Name       string           `yaml:"name"`
	Bundle     bool             `yaml:"bundle"`
	TermMonths *int             `yaml:"term_months"`
	Prices     map[string]int64 `yaml:"prices"`
	Children   []skuFixture     `yaml:"children"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting catalog seed")

	ctx := context.Background()

	if err := db.RunMigrations(ctx, cfg, migrations.FS); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&existing); err != nil {
		log.Error("failed to inspect accounts table", "error", err)
		panic("failed to inspect accounts table: " + err.Error())
	}
	if existing > 0 {
		log.Info("catalog already seeded, nothing to do", "accounts", existing)
		return
	}

	var data fixtures
	if err := yaml.Unmarshal(fixturesYAML, &data); err != nil {
		panic("failed to parse fixtures: " + err.Error())
	}

	if err := seed(ctx, pool, data, log); err != nil {
		log.Error("seed failed", "error", err)
		panic("seed failed: " + err.Error())
	}

	log.Info("catalog seeded",
		"accounts", len(data.Accounts),
		"pricebooks", len(data.Pricebooks),
		"skus", len(data.SKUs),
	)
}

func seed(ctx context.Context, pool *pgxpool.Pool, data fixtures, log *logger.Logger) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range data.Accounts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts (name, domain) VALUES ($1, $2)`,
			a.Name, a.Domain,
		); err != nil {
			return fmt.Errorf("insert account %q: %w", a.Name, err)
		}
	}

	pricebookIDs := make(map[string]int64, len(data.Pricebooks))
	for _, p := range data.Pricebooks {
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO pricebooks (name, currency, is_default) VALUES ($1, $2, $3) RETURNING id`,
			p.Name, p.Currency, p.Default,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert pricebook %q: %w", p.Name, err)
		}
		pricebookIDs[p.Name] = id
	}

	for _, s := range data.SKUs {
		if err := insertSKU(ctx, tx, s, nil, 0, pricebookIDs); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertSKU(ctx context.Context, tx pgx.Tx, s skuFixture, parentID *int64, sortOrder int, pricebookIDs map[string]int64) error {
	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO skus (code, name, is_bundle, parent_sku_id, term_months, sort_order)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.Code, s.Name, s.Bundle, parentID, s.TermMonths, sortOrder,
	).Scan(&id); err != nil {
		return fmt.Errorf("insert sku %q: %w", s.Code, err)
	}

	for pricebook, cents := range s.Prices {
		pricebookID, ok := pricebookIDs[pricebook]
		if !ok {
			return fmt.Errorf("sku %q references unknown pricebook %q", s.Code, pricebook)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO sku_prices (sku_id, pricebook_id, unit_price_cents) VALUES ($1, $2, $3)`,
			id, pricebookID, cents,
		); err != nil {
			return fmt.Errorf("insert price for sku %q in %q: %w", s.Code, pricebook, err)
		}
	}

	for i, child := range s.Children {
		if err := insertSKU(ctx, tx, child, &id, i, pricebookIDs); err != nil {
			return err
		}
	}

	return nil
}
