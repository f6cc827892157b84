// Package loader reads the truth and predictions tables.
//
// Both files are comma-separated with a header row that must contain the
// columns channel, user and subscribed in any order; other columns are
// ignored. Load(dir, name) opens <dir>/<name>; Parse decodes any reader.
//
// Any problem (missing file, missing column, ragged row, non-boolean label)
// is returned as an error. There is no partial result.
package loader
