package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"gocalc/app"
	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/workspace"
	"gocalc/internal/errors"
	"gocalc/ui/middleware"

	"github.com/gin-gonic/gin"
)

// IndexPage is the data for index.html
type IndexPage struct {
	*app.Snapshot
	Error string
}

// ReportPage is the data for report.html
type ReportPage struct {
	Workspace core.WorkspaceID
	Body      template.HTML
}

func (s *Server) handleIndex(c *gin.Context) {
	snap, err := s.calculator.State(c.Request.Context(), middleware.Workspace(c))
	if err != nil {
		s.renderError(c, err)
		return
	}
	s.renderTemplate(c, http.StatusOK, "index.html", IndexPage{Snapshot: snap})
}

func (s *Server) handleSetExpression(c *gin.Context) {
	s.after(c)(s.calculator.SetExpression(c.Request.Context(), middleware.Workspace(c), c.PostForm("expression")))
}

func (s *Server) handleRemoveNumber(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		s.renderError(c, core.NewValidationError("index", "must be an integer"))
		return
	}
	s.after(c)(s.calculator.RemoveNumber(c.Request.Context(), middleware.Workspace(c), index))
}

func (s *Server) handleCycleSort(c *gin.Context) {
	s.after(c)(s.calculator.CycleSortMode(c.Request.Context(), middleware.Workspace(c)))
}

func (s *Server) handleUpdateView(c *gin.Context) {
	var update app.ViewUpdate
	if v := c.PostForm("chart_type"); v != "" {
		t := chart.Type(v)
		update.ChartType = &t
	}
	if v := c.PostForm("cumulative"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			s.renderError(c, core.NewValidationError("cumulative", "must be true or false"))
			return
		}
		update.Cumulative = &on
	}
	s.after(c)(s.calculator.UpdateView(c.Request.Context(), middleware.Workspace(c), update))
}

func (s *Server) handlePin(c *gin.Context) {
	s.after(c)(s.calculator.Pin(c.Request.Context(), middleware.Workspace(c)))
}

// handleUpdatePinned applies whichever of name, color and expression the
// form carries. random_color=1 regenerates the color and ignores the posted
// color input.
func (s *Server) handleUpdatePinned(c *gin.Context) {
	var update app.PinnedSetUpdate
	if v, ok := c.GetPostForm("name"); ok {
		update.Name = &v
	}
	if v, ok := c.GetPostForm("color"); ok && v != "" {
		update.Color = &v
	}
	if v, ok := c.GetPostForm("expression"); ok {
		update.Expression = &v
	}
	update.RandomColor = c.PostForm("random_color") != ""
	s.after(c)(s.calculator.UpdatePinned(c.Request.Context(), middleware.Workspace(c), core.PinnedSetID(c.Param("id")), update))
}

func (s *Server) handleMovePinned(c *gin.Context) {
	dir, err := workspace.ParseDirection(c.PostForm("direction"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	s.after(c)(s.calculator.MovePinned(c.Request.Context(), middleware.Workspace(c), core.PinnedSetID(c.Param("id")), dir))
}

func (s *Server) handleRemovePinnedNumber(c *gin.Context) {
	entry, err := strconv.Atoi(c.Param("entry"))
	if err != nil {
		s.renderError(c, core.NewValidationError("entry", "must be an integer"))
		return
	}
	s.after(c)(s.calculator.RemovePinnedNumber(c.Request.Context(), middleware.Workspace(c), core.PinnedSetID(c.Param("id")), entry))
}

// handleDeletePinned needs confirm=yes, set by the page's confirmation dialog
func (s *Server) handleDeletePinned(c *gin.Context) {
	confirmed := c.PostForm("confirm") == "yes"
	s.after(c)(s.calculator.DeletePinned(c.Request.Context(), middleware.Workspace(c), core.PinnedSetID(c.Param("id")), confirmed))
}

func (s *Server) handleReport(c *gin.Context) {
	ws := middleware.Workspace(c)
	report, err := s.reports.Build(c.Request.Context(), ws)
	if err != nil {
		s.renderError(c, err)
		return
	}
	s.renderTemplate(c, http.StatusOK, "report.html", ReportPage{Workspace: ws, Body: template.HTML(report.HTML())})
}

func (s *Server) handleExport(c *gin.Context) {
	ws := middleware.Workspace(c)
	var buf bytes.Buffer
	if err := s.calculator.Export(c.Request.Context(), ws, s.exporter, &buf); err != nil {
		s.renderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, ws, s.exporter.Extension()))
	c.Data(http.StatusOK, s.exporter.ContentType(), buf.Bytes())
}

// after redirects back to the page on success (post/redirect/get)
func (s *Server) after(c *gin.Context) func(*app.Snapshot, error) {
	return func(_ *app.Snapshot, err error) {
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

// renderError shows the page again with the failure above it
func (s *Server) renderError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	page := IndexPage{Error: errors.Message(err)}
	if snap, loadErr := s.calculator.State(c.Request.Context(), middleware.Workspace(c)); loadErr == nil {
		page.Snapshot = snap
	} else {
		page.Snapshot = app.NewSnapshot(middleware.Workspace(c), workspace.NewState())
	}
	s.renderTemplate(c, status, "index.html", page)
}
