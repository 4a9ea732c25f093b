package mysql

const insertRunSQL = `
INSERT INTO cleaning_runs
  (id, started_at, finished_at, input, dropped, duplicates, clean, confirmed, failed)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  finished_at = VALUES(finished_at),
  dropped     = VALUES(dropped),
  duplicates  = VALUES(duplicates),
  clean       = VALUES(clean),
  confirmed   = VALUES(confirmed),
  failed      = VALUES(failed)
`

const upsertReservationsPrefix = "INSERT INTO reservations\n  (pnr, passenger_name, origin, destination, fare, status, confirmation, attempts, last_error, run_id)\nVALUES "

// A later run overwrites the stored copy; the PNR is the identity.
const upsertReservationsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  passenger_name = VALUES(passenger_name),\n" +
	"  origin         = VALUES(origin),\n" +
	"  destination    = VALUES(destination),\n" +
	"  fare           = VALUES(fare),\n" +
	"  status         = VALUES(status),\n" +
	"  confirmation   = VALUES(confirmation),\n" +
	"  attempts       = VALUES(attempts),\n" +
	"  last_error     = VALUES(last_error),\n" +
	"  run_id         = VALUES(run_id)\n"

// rows per INSERT statement; keeps placeholders well under the 65535 limit
const upsertBatchSize = 500

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getReservationSQL = `
SELECT pnr, passenger_name, origin, destination, fare, status, confirmation, attempts, last_error, run_id
FROM reservations
WHERE pnr = ?
`

const getRunSQL = `
SELECT id, started_at, finished_at, input, dropped, duplicates, clean, confirmed, failed
FROM cleaning_runs
WHERE id = ?
`
