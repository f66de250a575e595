package database

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/arnavshah/compliance-api-go/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func memoryDSN(t *testing.T) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}

func TestStore(t *testing.T) {
	db, err := Open("", memoryDSN(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, db.Create(&BusinessUnit{ID: "u2", Name: "Sur", ZoneID: "z1"}).Error)
	require.NoError(t, db.Create(&BusinessUnit{ID: "u1", Name: "Norte", ZoneID: "z1"}).Error)
	require.NoError(t, db.Create(&BusinessUnit{ID: "u3", Name: "Otra", ZoneID: "z2"}).Error)

	units, err := Units(ctx, db, "z1")
	require.NoError(t, err)
	assert.Equal(t, []models.BusinessUnit{
		{ID: "u1", Name: "Norte", ZoneID: "z1"},
		{ID: "u2", Name: "Sur", ZoneID: "z1"},
	}, units)

	all, err := Units(ctx, db, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, db.Create(&TargetOverride{PostName: "Garita", ShiftsExpected: 1}).Error)
	overrides, err := TargetOverrides(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Garita": 1}, overrides)
}

func TestSettings(t *testing.T) {
	db, err := Open("", memoryDSN(t))
	require.NoError(t, err)
	ctx := context.Background()

	s, err := LoadSettings(ctx, db, "key-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultViewSettings(), s)

	want := models.ViewSettings{ViewMode: "grid", ShowPhotos: false, ChartKind: "pie"}
	require.NoError(t, SaveSettings(ctx, db, "key-1", want))
	s, err = LoadSettings(ctx, db, "key-1")
	require.NoError(t, err)
	assert.Equal(t, want, s)

	want.ViewMode = "list"
	require.NoError(t, SaveSettings(ctx, db, "key-1", want))
	s, err = LoadSettings(ctx, db, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "list", s.ViewMode)
}

func TestLogger_SkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	db, err := gorm.Open(sqlite.Open(memoryDSN(t)), &gorm.Config{Logger: NewLogger(&zl)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	s, err := LoadSettings(context.Background(), db, "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultViewSettings(), s)
	assert.Empty(t, buf.String())

	require.Error(t, db.Exec("SELECT * FROM no_such_table").Error)
	assert.Contains(t, buf.String(), "no_such_table")
}
