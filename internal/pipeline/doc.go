// Package pipeline consumes the record stream of a crawl.
//
// A Pipeline applies an ordered list of Steps to every record a crawl
// produces: counting, duplicate detection, persistence, progress display.
// Failed crawl tasks are recorded in the run's SyncReport and do not stop the
// pipeline; a failing step stops it unless WithContinueOnError is set.
//
// BatchProcessor syncs several roots concurrently, one fresh pipeline per
// root, with a bound on how many run at once.
package pipeline
