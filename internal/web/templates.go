package web

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/flosch/pongo2/v6"
	"github.com/wichananm65/recommender-web/internal/lookup"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates are the page and the fragments swapped in after each event.
type Templates struct {
	index       *pongo2.Template
	identifier  *pongo2.Template
	suggestions *pongo2.Template
	results     *pongo2.Template
}

func LoadTemplates() (*Templates, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("lookup", pongo2.NewFSLoader(sub))

	t := &Templates{}
	for name, dst := range map[string]**pongo2.Template{
		"index.html":       &t.index,
		"identifier.html":  &t.identifier,
		"suggestions.html": &t.suggestions,
		"results.html":     &t.results,
	} {
		tpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", name, err)
		}
		*dst = tpl
	}
	return t, nil
}

// viewContext projects a form snapshot onto template variables.
func viewContext(v lookup.View, oob bool) pongo2.Context {
	rows := make([]pongo2.Context, 0, len(v.Rows))
	for _, r := range v.Rows {
		rows = append(rows, pongo2.Context{
			"product_id": r.ProductID,
			"rating":     r.Rating,
			"message":    r.Message,
			"full_width": r.FullWidth(),
		})
	}
	return pongo2.Context{
		"identifier":        v.Identifier,
		"item_count":        v.ItemCount,
		"suggestions":       v.Suggestions,
		"rows":              rows,
		"error_message":     v.ErrorMessage,
		"table_visible":     v.TableVisible,
		"container_visible": v.ContainerVisible,
		"phase":             v.Phase.String(),
		"oob":               oob,
	}
}

func render(tpl *pongo2.Template, v lookup.View, oob bool) ([]byte, error) {
	return tpl.ExecuteBytes(viewContext(v, oob))
}
