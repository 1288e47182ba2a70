package gtfs

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name     string
	content  string
	modified time.Time
}

func buildArchive(t *testing.T, entries []zipEntry) *Archive {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: e.modified,
		})
		require.NoError(t, err)
		_, err = w.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return NewArchive(zr)
}

func TestArchiveHasTable(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: "route_id\nr1\n"},
		{name: "Stops.TXT", content: "stop_id\ns1\n"},
		{name: "readme.md", content: "ignored"},
	})

	assert.True(t, a.HasTable(TableRoutes))
	// Member names match case-insensitively.
	assert.True(t, a.HasTable(TableStops))
	assert.False(t, a.HasTable(TableTrips))
	assert.False(t, a.HasTable("readme"))
}

func TestArchiveEachRow(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: "route_id,route_short_name\nr1,62\nr2,63\n"},
	})

	var rows []Row
	err := a.EachRow(TableRoutes, func(row Row) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].Get("route_id"))
	assert.Equal(t, "62", rows[0].Get("route_short_name"))
	assert.Equal(t, "r2", rows[1].Get("route_id"))
	// Unknown columns read as empty strings.
	assert.Equal(t, "", rows[0].Get("route_color"))
}

func TestArchiveEachRowBOM(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: "\ufeffroute_id\nr1\n"},
	})

	var seen []string
	err := a.EachRow(TableRoutes, func(row Row) error {
		seen = append(seen, row.Get("route_id"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, seen)
}

func TestArchiveEachRowShortRecords(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "stops.txt", content: "stop_id,stop_name,stop_lat\ns1,Newark\ns2,Hoboken,40.735\n"},
	})

	var rows []Row
	err := a.EachRow(TableStops, func(row Row) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].Get("stop_lat"))
	assert.Equal(t, "40.735", rows[1].Get("stop_lat"))
}

func TestArchiveEachRowMissingTable(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: "route_id\n"},
	})

	err := a.EachRow(TableShapes, func(Row) error { return nil })
	assert.ErrorIs(t, err, ErrMissingTable)
}

func TestArchiveEachRowCallbackError(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: "route_id\nr1\nr2\n"},
	})

	sentinel := errors.New("stop")
	count := 0
	err := a.EachRow(TableRoutes, func(Row) error {
		count++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, count)
}

func TestArchiveEachRowEmptyTable(t *testing.T) {
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: ""},
	})

	err := a.EachRow(TableRoutes, func(Row) error {
		t.Fatal("no rows expected")
		return nil
	})
	assert.NoError(t, err)
}

func TestArchiveNewestEntryTime(t *testing.T) {
	older := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.March, 5, 8, 30, 0, 0, time.UTC)
	a := buildArchive(t, []zipEntry{
		{name: "routes.txt", content: "route_id\n", modified: older},
		{name: "trips.txt", content: "trip_id\n", modified: newer},
	})

	newest, ok := a.NewestEntryTime()
	require.True(t, ok)
	assert.Equal(t, newer, newest)
}

func TestArchiveNewestEntryTimeEmpty(t *testing.T) {
	a := buildArchive(t, nil)
	_, ok := a.NewestEntryTime()
	assert.False(t, ok)
}
