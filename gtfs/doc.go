/*
Package gtfs provides row-level access to the tables of a GTFS zip bundle.

The package is deliberately thin: it knows how to find a table member inside
the archive, stream its CSV records as string-keyed rows, and report the
archive's freshness. All interpretation of the rows (typing, validation,
cross-table joins) belongs to the build pipeline, which skips malformed rows
individually instead of failing the whole table.

Open from a file path:

	archive, err := gtfs.OpenArchive("data/bus_data.zip")
	if err != nil {
	    return err
	}
	defer archive.Close()

	err = archive.EachRow(gtfs.TableRoutes, func(row gtfs.Row) error {
	    fmt.Println(row.Get("route_id"), row.Get("route_short_name"))
	    return nil
	})

Open from bytes (tests, object storage):

	zr, _ := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	archive := gtfs.NewArchive(zr)

calendar and calendar_dates are each optional in real feeds; use HasTable
before EachRow for those and treat gtfs.ErrMissingTable as fatal only for the
required tables (routes, trips, stops, stop_times).
*/
package gtfs
