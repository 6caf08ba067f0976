package sqlclient

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	client, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDBQueryAndExecute(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	require.NoError(t, client.Execute(ctx, "CREATE TABLE bookings (id INTEGER, is_instant BOOLEAN)"))
	require.NoError(t, client.Execute(ctx, "INSERT INTO bookings VALUES (1, true), (2, false)"))

	rows, err := client.Query(ctx, "SELECT count(*) FROM bookings")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 2, count)
}

func TestDBDryRun(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	require.NoError(t, client.Execute(ctx, "CREATE TABLE bookings (id INTEGER)"))
	assert.NoError(t, client.DryRun(ctx, "SELECT id FROM bookings"))
	assert.Error(t, client.DryRun(ctx, "SELECT id FROM no_such_table"))
}

func TestDBCreateTableAsSelect(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	require.NoError(t, client.Execute(ctx, "CREATE TABLE bookings (id INTEGER)"))
	require.NoError(t, client.Execute(ctx, "INSERT INTO bookings VALUES (1), (2), (3)"))
	require.NoError(t, client.CreateTableAsSelect(ctx, "booking_ids", "SELECT id FROM bookings"))

	rows, err := client.Query(ctx, "SELECT count(*) FROM booking_ids")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 3, count)
}

func TestOpenBadDriver(t *testing.T) {
	_, err := Open("no_such_driver", ":memory:")
	require.Error(t, err)
}
