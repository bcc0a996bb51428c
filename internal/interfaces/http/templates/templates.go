package templates

import (
	"embed"
	"html/template"
)

//go:embed *.tmpl
var files embed.FS

// Load 解析内嵌的页面模板
func Load() (*template.Template, error) {
	return template.New("pages").ParseFS(files, "*.tmpl")
}
