package trips

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newDryRunDB builds SQL without touching a database and records every
// generated query.
func newDryRunDB(t *testing.T, captured *[]string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=voyago dbname=voyago sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	err = db.Callback().Query().After("gorm:query").Register("capture_sql", func(tx *gorm.DB) {
		*captured = append(*captured, tx.Statement.SQL.String())
	})
	require.NoError(t, err)
	return db
}

func TestGetSeriesForUpdateEmitsRowLock(t *testing.T) {
	var captured []string
	repo := NewRepository(newDryRunDB(t, &captured))

	_, _ = repo.GetSeriesForUpdate(context.Background(), uuid.New())

	require.Len(t, captured, 1)
	assert.Contains(t, captured[0], "FOR UPDATE")
}

func TestGetSeriesReadsWithoutRowLock(t *testing.T) {
	var captured []string
	repo := NewRepository(newDryRunDB(t, &captured))

	_, _ = repo.GetSeries(context.Background(), uuid.New())

	require.Len(t, captured, 1)
	assert.NotContains(t, captured[0], "FOR UPDATE")
}
