package store

import "fmt"

// Open returns the store selected by driver: "memory", "sqlite" or "postgres".
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for driver %s", driver)
		}
		return OpenGorm(driver, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
