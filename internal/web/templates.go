package web

import (
	"html/template"
	"path/filepath"
)

// templateFuncs are helpers available inside index.html.
var templateFuncs = template.FuncMap{
	// shortHex abbreviates dna and account hex for display
	"shortHex": func(s string) string {
		if len(s) <= 12 {
			return s
		}
		return s[:6] + ".." + s[len(s)-4:]
	},
}

// parseTemplates finds and parses the HTML templates. All views live in a
// single index.html as named define blocks.
func parseTemplates() (*template.Template, error) {
	// Templates are read from the filesystem so the dashboard can be
	// iterated on without rebuilding.
	path := filepath.Join(".", "internal", "web", "index.html")

	tmpl, err := template.New("index.html").Funcs(templateFuncs).ParseFiles(path)
	if err != nil {
		return nil, err
	}

	return tmpl, nil
}
