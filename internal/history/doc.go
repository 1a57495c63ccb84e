// Package history keeps a SQLite journal of conversion outcomes.
//
// Every processed file is recorded with its size, modification time, codec,
// and outcome. The journal serves two purposes:
//   - files that previously produced no size improvement can be skipped when
//     their size and modification time are unchanged (SKIP_KNOWN_NO_GAIN)
//   - the shrink-history tool and the metrics collector report totals
//
// The database uses WAL mode so the tool can read while a batch writes.
package history
