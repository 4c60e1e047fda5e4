//go:build cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// initDB opens the cgo SQLite driver. The modernc _pragma=name(value) form
// used by the default config is rewritten to go-sqlite3's _name=value form.
func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite3", translatePragmas(dataSource))
}

func translatePragmas(dataSource string) string {
	path, query, ok := strings.Cut(dataSource, "?")
	if !ok {
		return dataSource
	}
	params := strings.Split(query, "&")
	for i, p := range params {
		value, found := strings.CutPrefix(p, "_pragma=")
		if !found {
			continue
		}
		name, arg, hasArg := strings.Cut(strings.TrimSuffix(value, ")"), "(")
		if hasArg {
			params[i] = "_" + name + "=" + arg
		}
	}
	return path + "?" + strings.Join(params, "&")
}
