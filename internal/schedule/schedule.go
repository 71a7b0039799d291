// Package schedule reads and writes room schedules exported from the
// building model as CSV, tab-separated text or XLSX.
package schedule

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/semitone-cli/internal/model"
)

// Reserved column names; every other column is a room parameter.
const (
	ColumnID       = "id"
	ColumnCategory = "category"
	ColumnLocked   = "locked"
)

// Options configures schedule parsing and writing.
type Options struct {
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"` // "" picks ',' for .csv and tab otherwise
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`   // WHATWG label, "" = UTF-8
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`         // XLSX sheet name, "" = first sheet
}

// Schedule is a parsed room schedule. Header keeps the column order for write-back.
type Schedule struct {
	Path   string
	Header []string
	Rooms  []*model.Room
}

// Format identifies a schedule file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat maps a file extension to a schedule format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".txt":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("schedule: unsupported file type %q", filepath.Ext(path))
	}
}

func (o Options) delimiter(f Format) (rune, error) {
	switch o.Delimiter {
	case "":
		if f == FormatCSV {
			return ',', nil
		}
		return '\t', nil
	case `\t`, "tab":
		return '\t', nil
	}
	runes := []rune(o.Delimiter)
	if len(runes) != 1 {
		return 0, eris.Errorf("schedule: delimiter %q must be a single character", o.Delimiter)
	}
	return runes[0], nil
}

// Read parses the schedule at path.
func Read(ctx context.Context, path string, opts Options) (*Schedule, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet})
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: read %s", path)
		}
	default:
		delim, err := opts.delimiter(format)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: open %s", path)
		}
		defer f.Close()

		r, err := decodeReader(bufio.NewReader(f), opts.Encoding)
		if err != nil {
			return nil, err
		}
		rows, err = ReadCSV(ctx, r, CSVOptions{Delimiter: delim, LazyQuotes: true})
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: read %s", path)
		}
	}

	s, err := FromRows(filepath.Base(path), rows)
	if err != nil {
		return nil, eris.Wrapf(err, "schedule: parse %s", path)
	}
	s.Path = path
	return s, nil
}

// FromRows builds rooms from a header row followed by data rows. Repeated
// parameter columns become multi-valued parameters in column order. Rows
// without an id get "<source>:row-<line>", so schedules from different
// files do not collide.
func FromRows(source string, rows [][]string) (*Schedule, error) {
	if len(rows) == 0 {
		return nil, eris.New("schedule: missing header row")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
	}

	s := &Schedule{Header: header}
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		room := &model.Room{Category: model.CategoryRooms, Params: map[string][]string{}}
		for i, name := range header {
			var v string
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			switch strings.ToLower(name) {
			case ColumnID:
				room.ID = v
			case ColumnCategory:
				if v != "" {
					room.Category = v
				}
			case ColumnLocked:
				room.Locked = parseBool(v)
			case "":
			default:
				room.AddParam(name, v)
			}
		}
		if room.ID == "" {
			room.ID = fallbackID(source, n+2)
		}
		s.Rooms = append(s.Rooms, room)
	}
	return s, nil
}

// Rows renders the schedule back to a header row and data rows. Parameters
// created after load are appended as new columns.
func (s *Schedule) Rows() [][]string {
	header := append([]string(nil), s.Header...)
	known := make(map[string]bool, len(header))
	for _, h := range header {
		known[h] = true
	}
	for _, r := range s.Rooms {
		for _, name := range r.ParamNames() {
			if !known[name] {
				known[name] = true
				header = append(header, name)
			}
		}
	}

	rows := make([][]string, 0, len(s.Rooms)+1)
	rows = append(rows, header)
	for _, r := range s.Rooms {
		seen := make(map[string]int)
		row := make([]string, len(header))
		for i, name := range header {
			switch strings.ToLower(name) {
			case ColumnID:
				row[i] = r.ID
			case ColumnCategory:
				row[i] = r.Category
			case ColumnLocked:
				row[i] = strconv.FormatBool(r.Locked)
			default:
				vals := r.Values(name)
				if k := seen[name]; k < len(vals) {
					row[i] = vals[k]
				}
				seen[name]++
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Write saves the schedule to path, using the format implied by its extension.
func Write(path string, s *Schedule, opts Options) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	rows := s.Rows()

	if format == FormatXLSX {
		return WriteXLSX(path, opts.Sheet, rows)
	}

	delim, err := opts.delimiter(format)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "schedule: create %s", path)
	}
	w, err := encodeWriter(f, opts.Encoding)
	if err != nil {
		f.Close()
		return err
	}
	if err := WriteCSV(w, rows, delim); err != nil {
		f.Close()
		return eris.Wrapf(err, "schedule: write %s", path)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return eris.Wrapf(err, "schedule: flush %s", path)
	}
	return eris.Wrapf(f.Close(), "schedule: close %s", path)
}

// normalizeHeader trims and NFC-normalizes a column name so parameter names
// typed on different systems compare equal.
func normalizeHeader(h string) string {
	return norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func fallbackID(source string, line int) string {
	if source == "" {
		return fmt.Sprintf("row-%d", line)
	}
	return fmt.Sprintf("%s:row-%d", source, line)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "да":
		return true
	}
	return false
}
