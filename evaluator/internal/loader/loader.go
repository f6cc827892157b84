package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chatdc/chatdc/pkg/types"
)

// Column names required in both tables.
const (
	ColumnChannel    = "channel"
	ColumnUser       = "user"
	ColumnSubscribed = "subscribed"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Load reads <dir>/<name> and returns its records in file order.
func Load(dir, name string) ([]types.Record, error) {
	if dir == "" {
		return nil, fmt.Errorf("load %s: directory is empty", name)
	}
	path := filepath.Join(dir, name)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}

// Parse decodes a table from r.
func Parse(r io.Reader) ([]types.Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		subscribed, err := parseLabel(row[cols.subscribed])
		if err != nil {
			line, _ := cr.FieldPos(cols.subscribed)
			return nil, fmt.Errorf("line %d: column %s: %w", line, ColumnSubscribed, err)
		}

		records = append(records, types.Record{
			Channel:    row[cols.channel],
			User:       row[cols.user],
			Subscribed: subscribed,
		})
	}
	return records, nil
}

type columns struct {
	channel, user, subscribed int
}

// indexColumns locates the required columns in the header row.
func indexColumns(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var cols columns
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{ColumnChannel, &cols.channel},
		{ColumnUser, &cols.user},
		{ColumnSubscribed, &cols.subscribed},
	} {
		i, ok := pos[c.name]
		if !ok {
			return columns{}, fmt.Errorf("%w %q", ErrMissingColumn, c.name)
		}
		*c.dst = i
	}
	return cols, nil
}

// parseLabel accepts the boolean spellings found in submissions:
// true/false in any case, t/f and 1/0.
func parseLabel(s string) (bool, error) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("not a boolean: %q", s)
	}
	return b, nil
}
