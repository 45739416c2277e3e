package intake

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
)

type layoutColumnFile struct {
	Field string `toml:"field"`
	Label string `toml:"label"`
}

type layoutFile struct {
	GroupField string             `toml:"group_field"`
	TopK       int                `toml:"top_k"`
	Statuses   []string           `toml:"statuses"`
	Columns    []layoutColumnFile `toml:"columns"`
}

// LoadLayout reads a TOML layout file. An empty path yields the default
// layout; omitted keys fall back to the default layout's values.
func LoadLayout(path string) (domainintake.Layout, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return domainintake.DefaultLayout(), nil
	}

	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return domainintake.Layout{}, errs.Wrap(err, "read layout file")
	}
	return ParseLayout(raw)
}

func ParseLayout(raw []byte) (domainintake.Layout, error) {
	var file layoutFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return domainintake.Layout{}, errs.Wrap(err, "decode layout file")
	}

	layout := domainintake.DefaultLayout()
	if len(file.Columns) > 0 {
		layout.Columns = make([]domainintake.Column, 0, len(file.Columns))
		for _, column := range file.Columns {
			field, err := domainintake.ParseField(column.Field)
			if err != nil {
				return domainintake.Layout{}, errs.Wrap(err, "parse layout column")
			}
			layout.Columns = append(layout.Columns, domainintake.Column{
				Field: field,
				Label: strings.TrimSpace(column.Label),
			})
		}
	}
	if len(file.Statuses) > 0 {
		layout.Statuses = file.Statuses
	}
	if strings.TrimSpace(file.GroupField) != "" {
		field, err := domainintake.ParseField(file.GroupField)
		if err != nil {
			return domainintake.Layout{}, errs.Wrap(err, "parse group_field")
		}
		layout.GroupField = field
	}
	if file.TopK > 0 {
		layout.TopK = file.TopK
	}

	if err := layout.Validate(); err != nil {
		return domainintake.Layout{}, err
	}
	return layout, nil
}
