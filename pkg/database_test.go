package decoder

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const chipLayoutSchema = `
CREATE TABLE ChipLayout (
	ChipNumber INTEGER NOT NULL,
	XOffset INTEGER NOT NULL,
	YOffset INTEGER NOT NULL,
	FlipX INTEGER NOT NULL,
	FlipY INTEGER NOT NULL,
	MinRun INTEGER NOT NULL,
	MaxRun INTEGER NOT NULL
);
INSERT INTO ChipLayout VALUES (3, 0, 256, 0, 0, 1, 100);
INSERT INTO ChipLayout VALUES (0, 300, 0, 0, 0, 200, 300);
INSERT INTO ChipLayout VALUES (1, 515, 515, 1, 0, 200, 300);
`

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(chipLayoutSchema)
	require.NoError(t, err)
	return db
}

func TestLoadChipLayout(t *testing.T) {
	db := openTestDB(t)

	layout, err := LoadChipLayout(db, 50, 0)
	require.NoError(t, err)
	want := DefaultChipLayout()
	want[3] = ChipTransform{XOffset: 0, YOffset: 256}
	assert.Equal(t, want, layout)

	layout, err = LoadChipLayout(db, 250, 0)
	require.NoError(t, err)
	assert.Equal(t, ChipTransform{XOffset: 300}, layout[0])
	assert.Equal(t, ChipTransform{XOffset: 515, YOffset: 515, FlipX: true}, layout[1])
	assert.Equal(t, DefaultChipLayout()[2], layout[2])
	_, ok := layout[3]
	assert.False(t, ok)
}

func TestLoadChipLayoutNoRows(t *testing.T) {
	db := openTestDB(t)

	layout, err := LoadChipLayout(db, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultChipLayout(), layout)
}

func TestLoadChipLayoutMissingTable(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = LoadChipLayout(db, 1, 0)
	assert.ErrorContains(t, err, "error querying database")
}
