// Package templates renders the HTML email bodies shipped with the identity
// core. Templates are embedded so the worker binary stays self-contained.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
)

//go:embed *.tmpl
var FS embed.FS

var parsed = htmpl.Must(htmpl.ParseFS(FS, "*.tmpl"))

// RenderHTML renders the named template against the given data.
func RenderHTML(name string, data map[string]any) (string, error) {
	t := parsed.Lookup(name + ".tmpl")
	if t == nil {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
