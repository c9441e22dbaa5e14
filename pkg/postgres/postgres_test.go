package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{URL: "postgres://app:secret@db:5432/postgres?sslmode=disable"}

	tests := []struct {
		name     string
		database string
		want     string
	}{
		{"keeps url database", "", "postgres://app:secret@db:5432/postgres?sslmode=disable"},
		{"switches database", "movies", "postgres://app:secret@db:5432/movies?sslmode=disable"},
		{"trims name", "  movies ", "postgres://app:secret@db:5432/movies?sslmode=disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.DSN(tt.database)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_DSN_Errors(t *testing.T) {
	_, err := (&Config{URL: "mysql://localhost/x"}).DSN("movies")
	assert.ErrorContains(t, err, `unsupported postgres url scheme "mysql"`)

	_, err = (&Config{URL: "postgres://[::1"}).DSN("movies")
	assert.ErrorContains(t, err, "parse postgres url")
}

func TestPool_CloseEmpty(t *testing.T) {
	p := NewPool(Config{})
	assert.NoError(t, p.Close())
}
