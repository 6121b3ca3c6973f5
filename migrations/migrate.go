package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Commands accepted by Run.
const (
	Up     = "up"
	Down   = "down"
	Status = "status"
)

// gooseLogger routes goose output into zerolog.
type gooseLogger struct{ log zerolog.Logger }

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Run applies one goose command against db using the embedded migrations.
func Run(ctx context.Context, db *sql.DB, command string, logger zerolog.Logger) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{log: logger.With().Str("module", "migrations").Logger()})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	switch command {
	case Up:
		return goose.UpContext(ctx, db, Dir)
	case Down:
		return goose.DownContext(ctx, db, Dir)
	case Status:
		return goose.StatusContext(ctx, db, Dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

// RunPool is Run over a pgx pool, bridged through database/sql.
func RunPool(ctx context.Context, pool *pgxpool.Pool, command string, logger zerolog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return Run(ctx, db, command, logger)
}
