package ui

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strings"

	"gocalc/app"
	"gocalc/domain/expression"
	"gocalc/domain/stats"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFiles embed.FS

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"stat":   app.FormatStat,
		"number": expression.FormatNumber,
		"modes": func(s stats.Statistics) string {
			if s.Count == 0 {
				return app.FormatStat(s.Mode)
			}
			parts := make([]string, len(s.Modes))
			for i, m := range s.Modes {
				parts[i] = app.FormatStat(m)
			}
			return strings.Join(parts, ", ")
		},
		"add": func(a, b int) int { return a + b },
		"json": func(v interface{}) (template.JS, error) {
			data, err := json.Marshal(v)
			return template.JS(data), err
		},
	}
	return template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.html")
}

// renderTemplate executes a template with the given data
func (s *Server) renderTemplate(c *gin.Context, status int, templateName string, data interface{}) {
	// First render to a buffer to catch any errors before writing to response
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Printf("Template error for %s: %v", templateName, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Template rendering failed", "details": err.Error()})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Writer.WriteHeader(status)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		log.Printf("Error writing template response: %v", err)
	}
}
