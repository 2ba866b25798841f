// Package ctmxml decodes the scheduler's XML job export into lineage records.
//
// The reader accepts JOB elements at any depth. Folder labels come from the
// job's PARENT_FOLDER attribute, falling back to the FOLDER_NAME of the
// nearest enclosing folder element. A document that is not well-formed fails
// as a whole; no partial record list is ever returned.
package ctmxml

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/net/html/charset"

	"github.com/leapstack-labs/condgraph/internal/lineage"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type xmlInCond struct {
	Name string `xml:"NAME,attr"`
	Date string `xml:"ODATE,attr"`
}

type xmlOutCond struct {
	Name string `xml:"NAME,attr"`
	Sign string `xml:"SIGN,attr"`
	Date string `xml:"ODATE,attr"`
}

type xmlJob struct {
	Name         string       `xml:"JOBNAME,attr"`
	ParentFolder string       `xml:"PARENT_FOLDER,attr"`
	TaskType     string       `xml:"TASKTYPE,attr"`
	InConds      []xmlInCond  `xml:"INCOND"`
	OutConds     []xmlOutCond `xml:"OUTCOND"`
}

// folderElements are the container elements whose FOLDER_NAME labels the
// jobs inside them.
var folderElements = map[string]bool{
	"FOLDER":       true,
	"SMART_FOLDER": true,
	"SUB_FOLDER":   true,
	"TABLE":        true,
	"SMART_TABLE":  true,
}

// DecodeFile reads and decodes the export at path.
func DecodeFile(path string) ([]lineage.Record, error) {
	f, err := os.Open(path) //nolint:gosec // export path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode reads an export document. Any syntax error, a document without a
// root element, content after the root element, or a JOB without JOBNAME
// yields a *lineage.ParseError.
func Decode(r io.Reader) ([]lineage.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	dec := xml.NewDecoder(br)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		records  []lineage.Record
		folders  []string
		sawRoot  bool
		rootDone bool
		depth    int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, syntaxError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootDone {
				return nil, junkError(dec, "element <"+t.Name.Local+">")
			}
			sawRoot = true
			name := t.Name.Local
			if name != "JOB" {
				depth++
				if folderElements[name] {
					folders = append(folders, attr(t, "FOLDER_NAME", attr(t, "TABLE_NAME", "")))
				}
				continue
			}

			// DecodeElement consumes the matching end tag.
			var job xmlJob
			if err := dec.DecodeElement(&job, &t); err != nil {
				return nil, syntaxError(err)
			}
			if job.Name == "" {
				line, _ := dec.InputPos()
				return nil, &lineage.ParseError{Msg: fmt.Sprintf("JOB element without JOBNAME near line %d", line)}
			}
			records = append(records, toRecord(job, innermost(folders)))
			if depth == 0 {
				rootDone = true
			}

		case xml.EndElement:
			depth--
			if folderElements[t.Name.Local] && len(folders) > 0 {
				folders = folders[:len(folders)-1]
			}
			if depth == 0 {
				rootDone = true
			}

		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, junkError(dec, "text")
			}
		}
	}

	if !sawRoot {
		return nil, &lineage.ParseError{Msg: "document has no root element"}
	}
	if records == nil {
		records = []lineage.Record{}
	}
	return records, nil
}

func toRecord(job xmlJob, enclosing string) lineage.Record {
	rec := lineage.Record{
		Name:     job.Name,
		Folder:   firstNonEmpty(job.ParentFolder, enclosing, lineage.DefaultFolder),
		TaskType: firstNonEmpty(job.TaskType, lineage.DefaultTaskType),
		Out:      make([]lineage.OutCondition, 0, len(job.OutConds)),
		In:       make([]lineage.InCondition, 0, len(job.InConds)),
	}
	for _, c := range job.OutConds {
		rec.Out = append(rec.Out, lineage.OutCondition{Name: c.Name, Sign: c.Sign, Date: c.Date})
	}
	for _, c := range job.InConds {
		rec.In = append(rec.In, lineage.InCondition{Name: c.Name, Date: c.Date})
	}
	return rec
}

// junkError reports content outside the single root element.
func junkError(dec *xml.Decoder, what string) error {
	line, _ := dec.InputPos()
	return &lineage.ParseError{Msg: fmt.Sprintf("line %d: %s outside the document element", line, what)}
}

func syntaxError(err error) error {
	var serr *xml.SyntaxError
	if errors.As(err, &serr) {
		return &lineage.ParseError{Msg: fmt.Sprintf("line %d: %s", serr.Line, serr.Msg), Err: err}
	}
	return &lineage.ParseError{Msg: err.Error(), Err: err}
}

func attr(el xml.StartElement, name, fallback string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return fallback
}

func innermost(folders []string) string {
	for i := len(folders) - 1; i >= 0; i-- {
		if folders[i] != "" {
			return folders[i]
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
