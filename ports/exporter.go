package ports

import (
	"io"

	"gocalc/domain/workspace"
)

// StateExporter writes a workspace snapshot in a document format
type StateExporter interface {
	Export(w io.Writer, state *workspace.State) error
	ContentType() string
	Extension() string
}
