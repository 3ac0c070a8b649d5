// Package server implements the daemon's HTTP request handling: bearer
// auth, body-size limits, dispatch into the core minifiers, response
// writing, and job-history/metrics recording. It is a single fixed
// operation — minify one body in one format — with no streaming, no
// upstream call, and no provider choice.
package server

import (
	"github.com/minifyco/minify/internal/cssmin"
	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/jsmin"
	"github.com/minifyco/minify/internal/jsonmin"
	"github.com/minifyco/minify/internal/plugin"
	"github.com/minifyco/minify/internal/sgmlmin"
)

// inlineRegistry builds the plugin.Registry sgmlmin consults to pick a
// child minifier for <script>/<style> bodies. Keys follow sgmlmin's own
// vocabulary ("css", "json", "javascript"), not the top-level CLI/HTTP
// format names.
func inlineRegistry() *plugin.Registry {
	reg := plugin.New()
	reg.Register("css", cssmin.Minify)
	reg.Register("json", jsonmin.Minify)
	reg.Register("javascript", jsmin.Minify)
	return reg
}

// formatRegistry builds the format name to top-level minifier function
// map the CLI and daemon both dispatch through. xml and html close over
// the shared inlineRegistry so an inline <script>/<style> body is
// minified by the same code path a direct "minify js"/"minify css" call
// would use.
func formatRegistry() *plugin.Registry {
	inline := inlineRegistry()

	reg := plugin.New()
	reg.Register("css", cssmin.Minify)
	reg.Register("js", jsmin.Minify)
	reg.Register("json", jsonmin.Minify)
	reg.Register("xml", func(src []byte) ([]byte, *diag.Report) {
		return sgmlmin.MinifyXML(src, inline)
	})
	reg.Register("html", func(src []byte) ([]byte, *diag.Report) {
		return sgmlmin.MinifyHTML(src, inline)
	})
	return reg
}

// Formats is the fixed, ordered set of formats the CLI and daemon accept.
var Formats = []string{"css", "js", "json", "xml", "html"}
