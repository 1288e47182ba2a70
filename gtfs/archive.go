package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Canonical table names understood by the build pipeline. Archive members are
// addressed by these names; the ".txt" suffix is an archive detail.
const (
	TableRoutes        = "routes"
	TableTrips         = "trips"
	TableStops         = "stops"
	TableStopTimes     = "stop_times"
	TableShapes        = "shapes"
	TableCalendar      = "calendar"
	TableCalendarDates = "calendar_dates"
)

// ErrMissingTable is returned when a requested table has no member in the
// archive. Callers decide whether a given table is required or optional.
var ErrMissingTable = errors.New("gtfs: missing table")

// Row is a single CSV record keyed by column name. Columns absent from the
// record (short rows, missing headers) read as the empty string.
type Row map[string]string

// Get returns the value of a column, or "" if the column is not present.
func (r Row) Get(col string) string { return r[col] }

// Archive provides row-level access to the tables of one GTFS zip bundle.
type Archive struct {
	members map[string]*zip.File
	closer  io.Closer
}

// OpenArchive opens a GTFS zip from the local filesystem.
func OpenArchive(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("gtfs: open archive %s: %w", path, err)
	}
	a := newArchive(&zr.Reader)
	a.closer = zr
	return a, nil
}

// NewArchive wraps an already-opened zip reader, e.g. one backed by an
// in-memory buffer.
func NewArchive(zr *zip.Reader) *Archive {
	return newArchive(zr)
}

func newArchive(zr *zip.Reader) *Archive {
	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".txt") {
			members[strings.TrimSuffix(name, ".txt")] = f
		}
	}
	return &Archive{members: members}
}

// Close releases the underlying zip file, if the archive owns one.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// HasTable reports whether the archive contains a member for the table.
func (a *Archive) HasTable(table string) bool {
	_, ok := a.members[table]
	return ok
}

// EachRow streams every record of a table to fn in file order. Records are
// keyed by the table's header row; short records simply omit the trailing
// columns. Returns ErrMissingTable (wrapped) if the table is absent.
func (a *Archive) EachRow(table string, fn func(Row) error) error {
	f, ok := a.members[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("gtfs: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gtfs: read %s header: %w", f.Name, err)
	}
	// Feeds exported on Windows often carry a UTF-8 BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gtfs: read %s: %w", f.Name, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// NewestEntryTime returns the modification time of the most recently written
// archive member, used as the feed's freshness marker. ok is false for an
// archive with no members.
func (a *Archive) NewestEntryTime() (time.Time, bool) {
	var newest time.Time
	found := false
	for _, f := range a.members {
		mod := f.Modified.UTC()
		if !found || mod.After(newest) {
			newest = mod
			found = true
		}
	}
	return newest, found
}
