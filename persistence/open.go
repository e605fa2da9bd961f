// persistence/open.go
package persistence

import (
	"fmt"

	"github.com/wfunc/battleship/config"
)

// Open returns the archive selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "none":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.SQLite.Path)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
