// Package votable implements a lenient reader for the IVOA VOTable XML
// format, the response envelope shared by TAP, SIA2 and DataLink services.
//
// Element matching is by local name only, so documents from any VOTable
// schema version (1.2, 1.3, 1.4) parse the same way.
package votable

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// Document is a parsed VOTable.
type Document struct {
	XMLName   xml.Name   `xml:"VOTABLE"`
	Infos     []Info     `xml:"INFO"`
	Resources []Resource `xml:"RESOURCE"`
}

// Resource is a VOTable RESOURCE element. DataLink responses use the type
// attribute to distinguish the "results" table from "meta" service
// descriptors.
type Resource struct {
	ID     string  `xml:"ID,attr"`
	Name   string  `xml:"name,attr"`
	Type   string  `xml:"type,attr"`
	Utype  string  `xml:"utype,attr"`
	Infos  []Info  `xml:"INFO"`
	Params []Param `xml:"PARAM"`
	Groups []Group `xml:"GROUP"`
	Tables []Table `xml:"TABLE"`
}

// Info carries service status information such as TAP's QUERY_STATUS.
type Info struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

// Param is a named constant attached to a resource or group.
type Param struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Group is a named collection of params.
type Group struct {
	Name   string  `xml:"name,attr"`
	Params []Param `xml:"PARAM"`
}

// Field describes one column of a table.
type Field struct {
	ID       string `xml:"ID,attr"`
	Name     string `xml:"name,attr"`
	Datatype string `xml:"datatype,attr"`
	Unit     string `xml:"unit,attr"`
	UCD      string `xml:"ucd,attr"`
}

// Table is a VOTable TABLE with its rows decoded from TABLEDATA.
type Table struct {
	Name   string  `xml:"name,attr"`
	Fields []Field `xml:"FIELD"`
	Rows   []Row   `xml:"DATA>TABLEDATA>TR"`
}

// Row is a single table row.
type Row struct {
	Cells []string `xml:"TD"`
}

// Parse decodes a VOTable document from r.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse VOTable: %w", err)
	}
	return &doc, nil
}

// FirstTable returns the first table of the document, searching resources in
// order. It fails when the document carries no table at all.
func (d *Document) FirstTable() (*Table, error) {
	for i := range d.Resources {
		if len(d.Resources[i].Tables) > 0 {
			return &d.Resources[i].Tables[0], nil
		}
	}
	return nil, fmt.Errorf("VOTable contains no table")
}

// QueryStatus returns the value and text of the QUERY_STATUS info element,
// looking at both the document and resource levels. ok is false when the
// document has no such element.
func (d *Document) QueryStatus() (value, message string, ok bool) {
	infos := d.Infos
	for _, res := range d.Resources {
		infos = append(infos, res.Infos...)
	}
	for _, info := range infos {
		if info.Name == "QUERY_STATUS" {
			return info.Value, info.Text, true
		}
	}
	return "", "", false
}

// Param returns the value of the named param on the resource.
func (r *Resource) Param(name string) (string, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// ColumnIndex returns the position of the named field.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, f := range t.Fields {
		if f.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("table has no column %q", name)
}

// Column returns the values of the named column, one per row.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		if idx >= len(row.Cells) {
			return nil, fmt.Errorf("row %d has no value for column %q", i, name)
		}
		values = append(values, row.Cells[idx])
	}
	return values, nil
}

// Cell returns the value in the named column of row i.
func (t *Table) Cell(i int, name string) (string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(t.Rows) {
		return "", fmt.Errorf("row %d out of range", i)
	}
	if idx >= len(t.Rows[i].Cells) {
		return "", fmt.Errorf("row %d has no value for column %q", i, name)
	}
	return t.Rows[i].Cells[idx], nil
}

// FloatCell returns the value in the named column of row i as a float64.
func (t *Table) FloatCell(i int, name string) (float64, error) {
	s, err := t.Cell(i, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q row %d: %w", name, i, err)
	}
	return v, nil
}

// IntCell returns the value in the named column of row i as an int.
func (t *Table) IntCell(i int, name string) (int, error) {
	s, err := t.Cell(i, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %q row %d: %w", name, i, err)
	}
	return v, nil
}
