// Package ingest loads ticket CSV exports into immutable datasets. The
// exports carry Arabic text in a handful of legacy encodings, so decoding
// walks a fixed encoding ladder before parsing.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"gprs_formatter/internal/ticket"
)

// ErrNoExports is returned when the drop directory holds no CSV files.
var ErrNoExports = errors.New("no csv exports found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LatestExport returns the most recently modified *.csv file in dir.
func LatestExport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoExports, dir)
	}
	sort.Slice(matches, func(i, j int) bool {
		return modTime(matches[i]).After(modTime(matches[j]))
	})
	return matches[0], nil
}

// Load reads and decodes one export into a dataset. Header names are
// trimmed; short rows read as blank in the missing columns and extra
// cells are dropped.
func Load(path string) (*ticket.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, encName, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ticket.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", filepath.Base(path), err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	ds := &ticket.Dataset{Columns: columns, Source: path, Encoding: encName}
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %s: %w", filepath.Base(path), err)
		}
		row := make(ticket.RawRecord, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// decode tries UTF-8 with BOM, plain UTF-8, Windows-1256, and ISO-8859-1
// in that order, matching the encodings the upstream exporter has been
// observed to produce.
func decode(raw []byte) (string, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		trimmed := bytes.TrimPrefix(raw, utf8BOM)
		if utf8.Valid(trimmed) {
			return string(trimmed), "utf-8-sig", nil
		}
	}
	if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}
	if text, err := decodeWith(charmap.Windows1256, raw); err == nil {
		return text, "windows-1256", nil
	}
	if text, err := decodeWith(charmap.ISO8859_1, raw); err == nil {
		return text, "iso-8859-1", nil
	}
	return "", "", errors.New("no supported encoding matched")
}

func decodeWith(cm *charmap.Charmap, raw []byte) (string, error) {
	decoded, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", errors.New("undecodable bytes")
	}
	return string(decoded), nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
