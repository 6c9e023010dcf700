package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/ariefcatur/holycat-orders/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
)

func main() {
	var (
		migrationsPath string
		down           bool
	)
	flag.StringVar(&migrationsPath, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll back one migration instead of applying all")
	cfg := config.MustLoad()

	if migrationsPath == "" {
		migrationsPath = cfg.Migrations.Path
	}

	if err := migrateDB(cfg, migrationsPath, down); err != nil {
		log.Fatal(err)
	}
	if err := listTables(cfg.Postgres.DSN()); err != nil {
		log.Fatal(err)
	}
}

func migrateDB(cfg *config.Config, path string, down bool) error {
	dsn := cfg.Postgres.DSN() + "&x-migrations-table=" + url.QueryEscape(cfg.Migrations.Table)
	m, err := migrate.New("file://"+path, dsn)
	if err != nil {
		return pkgerrors.Wrap(err, "create migrate instance")
	}
	defer m.Close()

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no migrations to apply")
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(err, "migrate")
	}
	v, dirty, _ := m.Version()
	fmt.Printf("migrations applied, version %d (dirty=%t)\n", v, dirty)
	return nil
}

func listTables(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return pkgerrors.Wrap(err, "open database")
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`)
	if err != nil {
		return pkgerrors.Wrap(err, "query tables")
	}
	defer rows.Close()

	fmt.Println("tables:")
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return pkgerrors.Wrap(err, "scan table name")
		}
		fmt.Println(" -", name)
	}
	return rows.Err()
}
