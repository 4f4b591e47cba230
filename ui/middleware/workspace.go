package middleware

import (
	"log"
	"net/http"

	"gocalc/domain/core"

	"github.com/gin-gonic/gin"
)

// WorkspaceCookie names the browser's workspace
const WorkspaceCookie = "gocalc_ws"

const workspaceKey = "workspace"

// cookie lifetime in seconds
const workspaceCookieMaxAge = 365 * 24 * 60 * 60

// EnsureWorkspace is middleware that gives every browser a workspace. A
// missing or malformed cookie is replaced with a freshly generated ID.
func EnsureWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(WorkspaceCookie)
		ws, parseErr := core.ParseWorkspaceID(raw)
		if err != nil || parseErr != nil {
			ws = core.NewWorkspaceID()
			log.Printf("[EnsureWorkspace] Assigned workspace %s", ws)
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(WorkspaceCookie, ws.String(), workspaceCookieMaxAge, "/", "", false, true)
		}
		c.Set(workspaceKey, ws)
		c.Next()
	}
}

// Workspace returns the workspace chosen by EnsureWorkspace
func Workspace(c *gin.Context) core.WorkspaceID {
	if v, ok := c.Get(workspaceKey); ok {
		if ws, ok := v.(core.WorkspaceID); ok {
			return ws
		}
	}
	return ""
}
