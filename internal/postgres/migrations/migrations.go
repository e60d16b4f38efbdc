package migrations

import "embed"

// FS holds the ordered SQL migration files applied by the migrate command.
//
//go:embed *.sql
var FS embed.FS

// Files lists migrations in the order they must be applied.
var Files = []string{
	"001_create_records.sql",
	"002_create_task_transitions.sql",
}
