// Package database records packagebot runs in a local SQLite file.
//
// Each run stores one row in runs, with the full JSON run report, and one
// row per offered page in page_results. The history answers two questions
// between runs: what did the last runs do, and when was a given title last
// created. The driver is modernc.org/sqlite, so the binary stays CGO-free.
package database
