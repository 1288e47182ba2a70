package builder

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/transitmaps/routebuilder/gtfs"
)

// fakeSource is an in-memory TableSource for driving individual passes.
type fakeSource struct {
	tables map[string][]gtfs.Row
	newest time.Time
}

func (f *fakeSource) HasTable(table string) bool {
	_, ok := f.tables[table]
	return ok
}

func (f *fakeSource) EachRow(table string, fn func(gtfs.Row) error) error {
	rows, ok := f.tables[table]
	if !ok {
		return gtfs.ErrMissingTable
	}
	for _, row := range rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) NewestEntryTime() (time.Time, bool) {
	return f.newest, !f.newest.IsZero()
}

// zipSource builds a real archive from raw CSV table contents, exercising
// the same access path a production build uses.
func zipSource(t *testing.T, tables map[string]string) *gtfs.Archive {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range tables {
		w, err := zw.Create(name + ".txt")
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return gtfs.NewArchive(zr)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testOptions() Options {
	return Options{
		MaxShapePoints: 260,
		ScheduleMode:   ScheduleModeExternal,
		Today:          date(2024, time.January, 15),
	}
}

func testFeed() FeedInfo {
	return FeedInfo{
		AgencyID:    "njt",
		AgencyLabel: "NJ Transit",
		Description: "Official NJ Transit bus routes",
		GTFSURL:     "https://example.com/bus_data.zip",
		ArchivePath: "data/bus_data.zip",
	}
}
