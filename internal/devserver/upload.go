package devserver

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx/v3"
)

// Upload errors.
var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file has no header row")
	ErrUnknownFile     = errors.New("uploaded file not found")
)

// sheet is a parsed upload: a header row and the data rows below it.
type sheet struct {
	entity  string
	headers []string
	rows    [][]string
}

// uploads keeps parsed files until they are processed.
type uploads struct {
	mu    sync.Mutex
	files map[string]*sheet
}

func newUploads() *uploads {
	return &uploads{files: make(map[string]*sheet)}
}

func (u *uploads) put(s *sheet) string {
	id := uuid.NewString()
	u.mu.Lock()
	u.files[id] = s
	u.mu.Unlock()
	return id
}

// take removes and returns the file with id for entityName.
func (u *uploads) take(entityName, id string) (*sheet, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.files[id]
	if !ok || s.entity != entityName {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, id)
	}
	delete(u.files, id)
	return s, nil
}

// parseSheet reads a CSV or the first worksheet of an xlsx file. The first
// non-empty row is the header row.
func parseSheet(filename string, data []byte) (*sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(data)
	case ".xlsx":
		rows, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s (accepted: .csv, .xlsx)", ErrUnsupportedFile, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	rows = slices.DeleteFunc(rows, blankRow)
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &sheet{headers: headers, rows: rows[1:]}, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("reading xlsx: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, ErrEmptyFile
	}

	var rows [][]string
	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		var row []string
		cellErr := r.ForEachCell(func(c *xlsx.Cell) error {
			row = append(row, strings.TrimSpace(c.String()))
			return nil
		})
		rows = append(rows, row)
		return cellErr
	})
	if err != nil {
		return nil, fmt.Errorf("reading xlsx rows: %w", err)
	}
	return rows, nil
}

func blankRow(row []string) bool {
	return !slices.ContainsFunc(row, func(c string) bool { return strings.TrimSpace(c) != "" })
}

// values applies mapping (field to header) to every data row. Unmapped
// fields are left out; empty cells are skipped.
func (s *sheet) values(mapping map[string]string) ([]map[string]string, error) {
	columns := make(map[string]int, len(mapping))
	var missing []string
	for field, header := range mapping {
		i := slices.IndexFunc(s.headers, func(h string) bool { return strings.EqualFold(h, header) })
		if i < 0 {
			missing = append(missing, header)
			continue
		}
		columns[field] = i
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("headers not in file: %s", strings.Join(missing, ", "))
	}

	out := make([]map[string]string, 0, len(s.rows))
	for _, row := range s.rows {
		r := make(map[string]string, len(columns))
		for field, i := range columns {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				r[field] = strings.TrimSpace(row[i])
			}
		}
		out = append(out, r)
	}
	return out, nil
}
