// internal/config/database.go
package config

import (
	"fmt"
	"strings"
)

const dbConnectTimeoutSeconds = 10

// DSN renders the libpq key/value connection string shared by gorm and the
// LISTEN/NOTIFY listener. Values are quoted when libpq would split them.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	pairs := []struct{ key, value string }{
		{"host", d.Host},
		{"port", d.Port},
		{"user", d.User},
		{"password", d.Password},
		{"dbname", d.Database},
		{"sslmode", sslMode},
	}

	parts := make([]string, 0, len(pairs)+1)
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	parts = append(parts, fmt.Sprintf("connect_timeout=%d", dbConnectTimeoutSeconds))
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + escaped + "'"
}
