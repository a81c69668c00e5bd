//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// This file is compiled with the sqlite_cgo tag. The C driver is noticeably
// faster on large corpora at the cost of requiring a C compiler.
//
// Build command:
//   CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
