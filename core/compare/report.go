package compare

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects a report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// Formats lists the supported report formats.
var Formats = []Format{FormatText, FormatJSON, FormatXML, FormatYAML}

// report is the structured form shared by the JSON, XML and YAML encodings.
type report struct {
	XMLName           xml.Name    `json:"-" yaml:"-" xml:"report"`
	Equal             bool        `json:"equal" yaml:"equal" xml:"equal,attr"`
	PageCountMismatch bool        `json:"page_count_mismatch,omitempty" yaml:"page_count_mismatch,omitempty" xml:"pageCountMismatch,attr,omitempty"`
	DifferingPages    []int       `json:"differing_pages,omitempty" yaml:"differing_pages,omitempty" xml:"differingPages>page,omitempty"`
	Differences       differences `json:"differences" yaml:"differences" xml:"differences"`
	Visual            string      `json:"visual,omitempty" yaml:"visual,omitempty" xml:"visual,omitempty"`
}

type differences struct {
	Count        int          `json:"count" yaml:"count" xml:"count,attr"`
	LimitReached bool         `json:"limit_reached" yaml:"limit_reached" xml:"limitReached,attr"`
	Items        []Difference `json:"items" yaml:"items" xml:"difference"`
}

func (r *Result) structured() report {
	items := r.Differences()
	if items == nil {
		items = []Difference{}
	}
	return report{
		Equal:             r.OK(),
		PageCountMismatch: r.PageCountMismatch,
		DifferingPages:    r.DifferingPages,
		Differences: differences{
			Count:        len(items),
			LimitReached: r.LimitReached(),
			Items:        items,
		},
		Visual: r.VisualSummary,
	}
}

// Text renders the differences as "message\npath\n---" blocks followed by
// the visual summary, if any.
func (r *Result) Text() string {
	var b strings.Builder
	b.WriteString(r.collector.Report())
	if r.VisualSummary != "" {
		b.WriteString(r.VisualSummary)
		if !strings.HasSuffix(r.VisualSummary, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// JSON renders the structured report.
func (r *Result) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r.structured(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comparison result: %w", err)
	}
	return data, nil
}

// XML renders the structured report with an XML declaration.
func (r *Result) XML() ([]byte, error) {
	data, err := xml.MarshalIndent(r.structured(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comparison result: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// YAML renders the structured report.
func (r *Result) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r.structured())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comparison result: %w", err)
	}
	return data, nil
}

// GenerateReport renders result in the given format.
func GenerateReport(result *Result, format Format) ([]byte, error) {
	switch format {
	case FormatText, "":
		return []byte(result.Text()), nil
	case FormatJSON:
		return result.JSON()
	case FormatXML:
		return result.XML()
	case FormatYAML:
		return result.YAML()
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// GenerateJSONReport renders result as indented JSON.
func GenerateJSONReport(result *Result) (string, error) {
	data, err := result.JSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
