package postgres

import (
	"fmt"

	"github.com/GoSim-25-26J-441/grant-registry-backend/config"
)

// DSN returns the configured DB_DSN, or builds one from the discrete settings.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)
}
