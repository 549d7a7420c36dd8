package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_MAX_CONNS", "12")
	cfg := ConfigFromEnv()
	assert.Contains(t, cfg.DSN, "localhost:5432")
	assert.Equal(t, 12, cfg.MaxConns)

	t.Setenv("DATABASE_MAX_CONNS", "zero")
	assert.Equal(t, 5, ConfigFromEnv().MaxConns)
}

func TestSessionDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"untouched", Config{DSN: "postgres://u:p@db/app"}, "postgres://u:p@db/app"},
		{"url", Config{DSN: "postgres://u:p@db/app?sslmode=disable", TimeZone: "UTC"}, "postgres://u:p@db/app?sslmode=disable&timezone=UTC"},
		{"keyword", Config{DSN: "host=db dbname=app", TimeZone: "Asia/Shanghai", ClientEncoding: "UTF8"}, "host=db dbname=app timezone='Asia/Shanghai' client_encoding='UTF8'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sessionDSN(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}
