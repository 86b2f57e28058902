//go:build ignore

// generate_schema applies every embedded migration to an in-memory database
// and writes the resulting schema to internal/database/sqlc/schema.sql,
// which sqlc reads to type-check queries.sql.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	"dpc-go/internal/database"
	"dpc-go/internal/database/migrations"
)

const header = `-- This file is auto-generated from migration files.
-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.
-- Source: internal/database/migrations/files/*.sql

`

func main() {
	out := flag.String("out", "internal/database/sqlc/schema.sql", "output file, relative to the module root")
	flag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s from migrations\n", *out)
}

func run(out string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return err
	}

	stmts, err := schemaStatements(db)
	if err != nil {
		return err
	}

	return os.WriteFile(out, []byte(header+strings.Join(stmts, "\n\n")+"\n\n"), 0644)
}

// schemaStatements returns the CREATE statements of every table and index,
// tables first, skipping SQLite internals and the migration bookkeeping table.
func schemaStatements(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name
	`)
	if err != nil {
		return nil, fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("scanning statement: %w", err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, rows.Err()
}
