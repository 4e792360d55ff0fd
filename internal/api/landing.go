package api

import (
	"embed"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// Embedded landing page assets.
//
//go:embed web/*
var embeddedWeb embed.FS

func getEmbedFS() static.ServeFileSystem {
	fs, err := static.EmbedFolder(embeddedWeb, "web")
	if err != nil {
		panic("failed to get embedded web filesystem: " + err.Error())
	}
	return fs
}

// MountLanding serves the embedded landing page at the root path. API and
// swagger routes are left alone.
func MountLanding(r *gin.Engine, logger *slog.Logger) {
	webFS := getEmbedFS()
	r.Use(static.Serve("/", webFS))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.RequestURI, "/api") || strings.HasPrefix(c.Request.RequestURI, "/swagger") {
			return
		}
		index, err := webFS.Open("index.html")
		if err != nil {
			if logger != nil {
				logger.Error("failed to open index.html", "error", err)
			}
			return
		}
		defer index.Close()
		stat, _ := index.Stat()
		http.ServeContent(c.Writer, c.Request, "index.html", stat.ModTime(), index)
	})
}
