package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"kiccms/internal/errs"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func parseOutputFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	switch format {
	case "", outputTable, "text":
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	case outputYAML, "yml":
		return outputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (table|json|yaml)", raw)
	}
}

// writeStructured encodes value as JSON or YAML.
func writeStructured(w io.Writer, format string, value any) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(value); err != nil {
			return errs.Wrap(err, "encode json output")
		}
		return nil
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return errs.Wrap(err, "encode yaml output")
		}
		if err := encoder.Close(); err != nil {
			return errs.Wrap(err, "flush yaml output")
		}
		return nil
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}

func renderTable(header []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...).
		Rows(rows...).
		Render()
}
