/*
Package store persists trained markov chains in a SQLite database.

Symbols are stored once in a shared table and referenced by id from each
model's links and starting symbols. Saving a chain merges its counts into
what is already stored, so a model can be trained incrementally. Models can
also be exported to and imported from JSON.

The package does not import a driver; callers register one, such as
modernc.org/sqlite or github.com/mattn/go-sqlite3, and call SetupSchema once.
*/
package store
