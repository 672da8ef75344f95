// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_WriteLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "hydrostat.db")
	db, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = uuid.Parse(db.Session())
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Write(ctx, Reading{Kind: KindEC, Value: 1100, At: base}))
	require.NoError(t, db.Write(ctx, Reading{Kind: KindEC, Value: 1200, At: base.Add(time.Minute)}))
	lo, hi := 30.5, 41.0
	require.NoError(t, db.Write(ctx, Reading{Kind: KindLedTemperature, Value: 35, Min: &lo, Max: &hi, At: base}))

	ec, err := db.Latest(ctx, KindEC, 10)
	require.NoError(t, err)
	require.Len(t, ec, 2)
	assert.Equal(t, 1200.0, ec[0].Value)
	assert.True(t, ec[0].At.Equal(base.Add(time.Minute)))
	assert.Nil(t, ec[0].Min)

	led, err := db.Latest(ctx, KindLedTemperature, 1)
	require.NoError(t, err)
	require.Len(t, led, 1)
	require.NotNil(t, led[0].Min)
	assert.Equal(t, 30.5, *led[0].Min)
	assert.Equal(t, 41.0, *led[0].Max)

	none, err := db.Latest(ctx, KindPH, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydrostat.db")

	first, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Write(context.Background(), Reading{Kind: KindPH, Value: 6.2, At: time.Now()}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer second.Close()
	assert.NotEqual(t, first.Session(), second.Session())

	got, err := second.Latest(context.Background(), KindPH, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN("file:memdb?mode=memory")
	require.NoError(t, err)
	assert.Equal(t, "file:memdb?mode=memory&_busy_timeout=5000&_journal_mode=WAL", dsn)

	dsn, err = buildDSN("plain.db")
	require.NoError(t, err)
	assert.Equal(t, "file:plain.db?_busy_timeout=5000&_journal_mode=WAL", dsn)
}
