// Package main seeds a freshly provisioned navgate database with
// reference data: base currencies, common units, the permission catalog,
// default roles and the initial admin user.
//
// Seeding is idempotent: existing rows are left untouched, so the seeder
// can run on every deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"navgate/internal/config"
	"navgate/internal/core/id"
	"navgate/internal/infrastructure/storage/postgres"
	"navgate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DB.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		s := &seeder{q: txManager.GetQuerier(ctx)}

		if err := s.currencies(ctx); err != nil {
			return fmt.Errorf("seed currencies: %w", err)
		}
		if err := s.units(ctx); err != nil {
			return fmt.Errorf("seed units: %w", err)
		}
		if err := s.permissions(ctx); err != nil {
			return fmt.Errorf("seed permissions: %w", err)
		}
		if err := s.roles(ctx); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		if err := s.adminUser(ctx); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Fatalw("seed failed", "error", err)
	}

	log.Info("seed complete")
}

type seeder struct {
	q postgres.Querier
}

// currencies inserts HUF as the base currency plus the common invoicing
// currencies. Rates start at zero and are maintained through the API.
func (s *seeder) currencies(ctx context.Context) error {
	rows := []struct {
		code, name, iso, symbol string
		decimals                int
		isBase                  bool
		rate                    string
	}{
		{"HUF", "Hungarian forint", "HUF", "Ft", 0, true, "1"},
		{"EUR", "Euro", "EUR", "€", 2, false, "0"},
		{"USD", "US dollar", "USD", "$", 2, false, "0"},
	}

	for _, r := range rows {
		var exists bool
		err := s.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM cat_currencies WHERE iso_code = $1 AND NOT deletion_mark)`,
			r.iso,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		_, err = s.q.Exec(ctx, `
			INSERT INTO cat_currencies (id, code, name, iso_code, symbol, decimal_places, is_base, rate_to_huf)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, id.New(), r.code, r.name, r.iso, r.symbol, r.decimals, r.isBase, r.rate)
		if err != nil {
			return err
		}
	}
	return nil
}

// units inserts the common units of measure with their reporting codes.
func (s *seeder) units(ctx context.Context) error {
	rows := []struct {
		code, name, symbol, navCode string
	}{
		{"PCS", "Piece", "pcs", "PIECE"},
		{"KG", "Kilogram", "kg", "KILOGRAM"},
		{"L", "Litre", "l", "LITRE"},
		{"M", "Meter", "m", "METER"},
		{"HOUR", "Hour", "h", "HOUR"},
		{"DAY", "Day", "day", "DAY"},
		{"MONTH", "Month", "month", "MONTH"},
		{"PACK", "Pack", "pack", "PACK"},
	}

	for _, r := range rows {
		var exists bool
		err := s.q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM cat_units WHERE code = $1 AND NOT deletion_mark)`,
			r.code,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		_, err = s.q.Exec(ctx, `
			INSERT INTO cat_units (id, code, name, symbol, nav_code)
			VALUES ($1, $2, $3, $4, $5)
		`, id.New(), r.code, r.name, r.symbol, r.navCode)
		if err != nil {
			return err
		}
	}
	return nil
}

// permissionCatalog is every permission the API checks, grouped the way
// the routes check them.
var permissionCatalog = []struct {
	resource string
	actions  []string
}{
	{"catalog:currency", []string{"read", "create", "update", "delete"}},
	{"catalog:unit", []string{"read", "create", "update", "delete"}},
	{"catalog:company", []string{"read", "create", "update", "delete"}},
	{"catalog:partner", []string{"read", "create", "update", "delete"}},
	{"catalog:product", []string{"read", "create", "update", "delete"}},
	{"catalog:credentials", []string{"read", "create", "update", "delete", "manage"}},
	{"document:invoice", []string{"read", "create", "update", "delete", "finalize"}},
	{"submission", []string{"read", "submit", "cancel"}},
	{"report:invoices", []string{"read"}},
	{"report:submissions", []string{"read"}},
	{"audit", []string{"read"}},
}

func (s *seeder) permissions(ctx context.Context) error {
	for _, group := range permissionCatalog {
		for _, action := range group.actions {
			code := group.resource + ":" + action
			_, err := s.q.Exec(ctx, `
				INSERT INTO permissions (id, code, name, resource, action)
				VALUES ($1, $2, $2, $3, $4)
				ON CONFLICT (code) DO NOTHING
			`, id.New(), code, group.resource, action)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// rolePresets maps role codes to permission code patterns. "*" grants
// every action of the resource.
var rolePresets = []struct {
	code, name  string
	permissions []string
}{
	{
		code: "accountant",
		name: "Accountant",
		permissions: []string{
			"catalog:currency:*", "catalog:unit:*", "catalog:company:read",
			"catalog:partner:*", "catalog:product:*", "catalog:credentials:read",
			"document:invoice:*", "submission:*",
			"report:invoices:read", "report:submissions:read",
		},
	},
	{
		code: "clerk",
		name: "Invoicing clerk",
		permissions: []string{
			"catalog:currency:read", "catalog:unit:read", "catalog:company:read",
			"catalog:partner:read", "catalog:partner:create", "catalog:product:read",
			"document:invoice:read", "document:invoice:create", "document:invoice:update",
			"submission:read",
		},
	},
	{
		code: "viewer",
		name: "Read-only access",
		permissions: []string{
			"catalog:currency:read", "catalog:unit:read", "catalog:company:read",
			"catalog:partner:read", "catalog:product:read", "catalog:credentials:read",
			"document:invoice:read", "submission:read",
			"report:invoices:read", "report:submissions:read",
		},
	},
}

func (s *seeder) roles(ctx context.Context) error {
	for _, preset := range rolePresets {
		roleID := id.New()
		err := s.q.QueryRow(ctx, `
			INSERT INTO roles (id, code, name, is_system)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, roleID, preset.code, preset.name).Scan(&roleID)
		if err != nil {
			return err
		}

		for _, pattern := range preset.permissions {
			var sql string
			var arg string
			if pattern[len(pattern)-1] == '*' {
				sql = `
					INSERT INTO role_permissions (role_id, permission_id)
					SELECT $1, id FROM permissions WHERE code LIKE $2
					ON CONFLICT DO NOTHING
				`
				arg = pattern[:len(pattern)-1] + "%"
			} else {
				sql = `
					INSERT INTO role_permissions (role_id, permission_id)
					SELECT $1, id FROM permissions WHERE code = $2
					ON CONFLICT DO NOTHING
				`
				arg = pattern
			}
			if _, err := s.q.Exec(ctx, sql, roleID, arg); err != nil {
				return err
			}
		}
	}
	return nil
}

// adminUser creates the initial admin account from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD. Skipped when the variables are unset or the user
// already exists.
func (s *seeder) adminUser(ctx context.Context) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1) AND NOT deletion_mark)`,
		email,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, is_active, is_admin, email_verified)
		VALUES ($1, $2, $3, TRUE, TRUE, TRUE)
	`, id.New(), email, string(hash))
	return err
}
