package sqlite

import (
	"codeberg.org/miketth/lingoswitch/pkg/profilestore/sqlite/migrations"
	"context"
	"database/sql"
	"fmt"
	"go.uber.org/zap"
	"io"
)

const sqliteMasterSchema = `create table sqlite_master (
    type     text,
    name     text,
    tbl_name text,
    rootpage int,
    sql      text
);
`

// DumpSchema writes the statements of a freshly migrated database to w,
// tables first.
func DumpSchema(ctx context.Context, w io.Writer, log *zap.SugaredLogger) error {
	db, err := sql.Open("sqlite3", "file:schemadump?cache=shared&mode=memory")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := migrations.Migrate(db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		select sql from sqlite_master
		where sql is not null and name not like 'sqlite_%' and tbl_name != 'schema_migrations'
		order by type = 'table' desc, name`)
	if err != nil {
		return fmt.Errorf("sqlite select schema: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var statement string
		if err := rows.Scan(&statement); err != nil {
			return fmt.Errorf("sqlite scan schema: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s;\n\n", statement); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite read schema: %w", err)
	}

	if _, err := io.WriteString(w, sqliteMasterSchema); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}
