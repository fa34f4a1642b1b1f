package analysis

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

type xlsxWorkbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxShared struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

// Worksheet limits of the XLSX format.
const (
	xlsxMaxRows    = 1048576
	xlsxMaxColumns = 16384
)

type xlsxSheet struct {
	Rows []struct {
		R     int `xml:"r,attr"`
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			V      string `xml:"v"`
			Inline struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// LoadXLSX reads one worksheet into a Table. The first row is the header.
// If sheetName is empty, sheetIndex (1-based) selects the sheet.
func LoadXLSX(p string, opt Options, sheetName string, sheetIndex int) (*Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb xlsxWorkbook
	if err := decodeZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRels
	if err := decodeZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		targets[r.ID] = normalizeRelPath(r.Target)
	}

	names := make([]string, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		names = append(names, s.Name)
	}
	target := ""
	if sheetName != "" {
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, sheetName) {
				target = targets[s.RID]
			}
		}
		if target == "" || !zipHas(&zr.Reader, target) {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'; available sheets: %s",
				sheetName, filepath.Base(p), strings.Join(names, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		for _, s := range wb.Sheets {
			if s.SheetID == idx {
				target = targets[s.RID]
				break
			}
		}
		if target == "" {
			target = path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx))
		}
		if !zipHas(&zr.Reader, target) {
			return nil, fmt.Errorf("sheet index %d not found in workbook '%s'; available sheets: %s",
				idx, filepath.Base(p), strings.Join(names, ", "))
		}
	}

	var shared xlsxShared
	if err := decodeZipXML(&zr.Reader, "xl/sharedStrings.xml", &shared); err != nil {
		return nil, err
	}
	strs := make([]string, len(shared.Items))
	for i, si := range shared.Items {
		if len(si.Runs) == 0 {
			strs[i] = si.T
			continue
		}
		var b strings.Builder
		for _, r := range si.Runs {
			b.WriteString(r.T)
		}
		strs[i] = b.String()
	}

	var sheet xlsxSheet
	if err := decodeZipXML(&zr.Reader, target, &sheet); err != nil {
		return nil, err
	}
	// Rows keep their spreadsheet position: blank rows between the header and
	// the data become empty records.
	var rows [][]string
	firstRow := 0
	for _, r := range sheet.Rows {
		if r.R > xlsxMaxRows {
			return nil, fmt.Errorf("row %d exceeds the worksheet limit of %d rows", r.R, xlsxMaxRows)
		}
		if r.R > 0 {
			if firstRow == 0 {
				firstRow = r.R
			}
			for len(rows) < r.R-firstRow {
				rows = append(rows, nil)
			}
		}
		var row []string
		for pos, c := range r.Cells {
			col := pos
			if c.Ref != "" {
				col = colIndexFromRef(c.Ref)
			}
			if col < 0 {
				continue
			}
			for len(row) <= col {
				row = append(row, "")
			}
			switch c.Type {
			case "s":
				if i, err := strconv.Atoi(strings.TrimSpace(c.V)); err == nil && i >= 0 && i < len(strs) {
					row[col] = strs[i]
				}
			case "inlineStr":
				row[col] = c.Inline.T
			default:
				row[col] = c.V
			}
		}
		rows = append(rows, row)
	}
	name := filepath.Base(p)
	if len(rows) == 0 {
		return NewTable(name, nil, nil, opt), nil
	}
	records := rows[1:]
	skipped := 0
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		skipped = len(records) - opt.MaxRows
		records = records[:opt.MaxRows]
	}
	t := NewTable(name, rows[0], records, opt)
	t.Skipped = skipped
	return t, nil
}

func zipHas(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// decodeZipXML unmarshals a workbook part. Missing parts leave v untouched.
func decodeZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		if err := xml.NewDecoder(rc).Decode(v); err != nil && err != io.EOF {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		return nil
	}
	return nil
}

// colIndexFromRef maps a cell reference like "C12" to a 0-based column.
// References beyond the last worksheet column (XFD) give -1.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
		if idx > xlsxMaxColumns {
			return -1
		}
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to ZIP entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
