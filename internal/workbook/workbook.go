// Package workbook reads XLSX and CSV uploads into tables and writes tables
// back to XLSX.
package workbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/leadsplit/internal/model"
)

// Options configures a read.
type Options struct {
	Sheet     string // XLSX sheet name; empty selects the first sheet
	Charset   string // CSV charset label, default utf-8
	Delimiter rune   // CSV delimiter; 0 detects ';', tab, or ','
}

const utf8BOM = "\ufeff"

// ReadFile reads the file at path, choosing the format by extension.
func ReadFile(path string, opts Options) (*model.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: read %s", path)
	}
	return Read(filepath.Base(path), data, opts)
}

// Read parses data named name, choosing the format by extension.
func Read(name string, data []byte, opts Options) (*model.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(data, opts)
	case ".csv", ".txt":
		return ReadCSV(bytes.NewReader(data), opts)
	default:
		return nil, eris.Errorf("workbook: unsupported file type %q", name)
	}
}

// ReadCallLog reads a call log; every failure is reported as a
// LOG_PARSE_ERROR condition.
func ReadCallLog(name string, data []byte, opts Options) (*model.Table, error) {
	t, err := Read(name, data, opts)
	if err != nil {
		return nil, &model.ConditionError{
			Code:    model.CodeLogParseError,
			Message: "call log " + name + " could not be parsed: " + err.Error(),
			Err:     err,
		}
	}
	if len(t.Columns) == 0 {
		return nil, model.NewCondition(model.CodeLogParseError, "call log %s has no header row", name)
	}
	return t, nil
}

// SheetNames lists the sheets of an XLSX workbook in order.
func SheetNames(data []byte) ([]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open xlsx")
	}
	names := make([]string, len(f.Sheets))
	for i, s := range f.Sheets {
		names[i] = s.Name
	}
	return names, nil
}

// ReadXLSX parses one sheet of an XLSX workbook.
func ReadXLSX(data []byte, opts Options) (*model.Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open xlsx")
	}

	sheet, err := getSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return model.TableFromRows(rows), nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("workbook: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("workbook: file has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cellText(cell)
	}
	return cells
}

// cellText keeps numeric cells in plain decimal notation so long contract
// and tax numbers are not rendered in scientific form.
func cellText(c *xlsx.Cell) string {
	if c == nil {
		return ""
	}
	if c.Type() == xlsx.CellTypeNumeric {
		if strings.ContainsAny(c.Value, "eE") {
			if f, err := strconv.ParseFloat(c.Value, 64); err == nil {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
		return c.Value
	}
	return c.String()
}

// ReadCSV parses delimited text, decoding it from opts.Charset first.
func ReadCSV(r io.Reader, opts Options) (*model.Table, error) {
	if opts.Charset != "" && !strings.EqualFold(opts.Charset, "utf-8") && !strings.EqualFold(opts.Charset, "utf8") {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, eris.Wrapf(err, "workbook: unsupported charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}

	br := bufio.NewReader(r)
	delim := opts.Delimiter
	if delim == 0 {
		first, err := br.Peek(4096)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, eris.Wrap(err, "workbook: peek csv")
		}
		delim = detectDelimiter(string(first))
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "workbook: read csv row")
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return model.TableFromRows(rows), nil
}

// detectDelimiter picks the most frequent candidate on the first line.
func detectDelimiter(sample string) rune {
	if i := strings.IndexAny(sample, "\r\n"); i >= 0 {
		sample = sample[:i]
	}
	best, bestN := ',', strings.Count(sample, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(sample, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// WriteXLSX renders t as a single-sheet workbook.
func WriteXLSX(t *model.Table, sheetName string) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: add sheet %q", sheetName)
	}

	header := sheet.AddRow()
	for _, c := range t.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "workbook: write xlsx")
	}
	return buf.Bytes(), nil
}
