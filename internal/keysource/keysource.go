// Package keysource loads key sets for the bench tool from text files, SOSD
// style binary dumps, and SQLite tables.
package keysource

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// maxBinaryKeys bounds the count prefix of a binary dump before allocating.
const maxBinaryKeys = 1 << 34

// ErrMalformed reports an input that could not be parsed.
var ErrMalformed = errors.New("keysource: malformed input")

// FromText reads one unsigned decimal key per line. Blank lines and lines
// starting with '#' are skipped.
func FromText(r io.Reader) ([]uint64, error) {
	var keys []uint64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		k, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		keys = append(keys, k)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read keys: %w", err)
	}
	return keys, nil
}

// FromBinary reads a little-endian uint64 count followed by that many
// little-endian uint64 keys.
func FromBinary(r io.Reader) ([]uint64, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	var n uint64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: count: %v", ErrMalformed, err)
	}
	if n > maxBinaryKeys {
		return nil, fmt.Errorf("%w: count %d too large", ErrMalformed, n)
	}

	keys := make([]uint64, n)
	if err := binary.Read(br, binary.LittleEndian, keys); err != nil {
		return nil, fmt.Errorf("%w: keys: %v", ErrMalformed, err)
	}
	return keys, nil
}

// FromSQLite runs query against the SQLite database at path and collects
// the first column of every row as an integer key. Rows come back in the
// order the query produces them; add ORDER BY for sorted keys.
func FromSQLite(ctx context.Context, path, query string) ([]int64, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []int64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key %d: %w", len(keys), err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return keys, nil
}
