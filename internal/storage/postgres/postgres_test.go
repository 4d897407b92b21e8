package postgres

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage_EmptyDSN(t *testing.T) {
	_, err := NewStorage("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestIsConcurrentDDL(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: true},
		{name: "Duplicate table wrapped", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.DuplicateTable}), want: true},
		{name: "Syntax error", err: &pgconn.PgError{Code: pgerrcode.SyntaxError}, want: false},
		{name: "Plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConcurrentDDL(tt.err))
		})
	}
}

func TestStorage_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	s, err := NewStorage(dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(t.Context()))
	_, err = s.Stats(t.Context())
	require.NoError(t, err)
}
