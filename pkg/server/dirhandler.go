package server

import (
	"net/http"
	"strings"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
)

// DirectoryHandler serves the content of a file system
// below a URL prefix.
type DirectoryHandler struct {
	prefix  string
	handler http.Handler
}

var _ http.Handler = (*DirectoryHandler)(nil)

func NewDirectoryHandlerFor(path, prefix string) (*DirectoryHandler, error) {
	fs, err := projectionfs.New(osfs.OsFs, path)
	if err != nil {
		return nil, err
	}
	return NewDirectoryHandler(fs, prefix), nil
}

func NewDirectoryHandler(fs vfs.FileSystem, prefix string) *DirectoryHandler {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &DirectoryHandler{
		prefix:  prefix,
		handler: http.StripPrefix(prefix, http.FileServerFS(vfs.AsIoFS(fs))),
	}
}

func (d *DirectoryHandler) Prefix() string {
	return d.prefix
}

func (d *DirectoryHandler) RegisterHandler(srv *Server) {
	srv.Handle(d.prefix, d)
}

func (d *DirectoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debug("{{method}} serving {{url}}", "method", r.Method, "url", r.URL)
	d.handler.ServeHTTP(w, r)
}
