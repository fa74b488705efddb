package browse

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/auth"
	"photonix/photo-portal/internal/library"
	"photonix/photo-portal/pkg/storage"
)

// PhotoFiles opens stored photos for download
type PhotoFiles interface {
	OpenPhoto(ctx context.Context, userID, photoID string) (*library.Photo, io.ReadCloser, error)
}

type Handler struct {
	service *Service
	files   PhotoFiles
	logger  *zap.Logger
}

func NewHandler(service *Service, files PhotoFiles, logger *zap.Logger) *Handler {
	return &Handler{service: service, files: files, logger: logger}
}

// RegisterRoutes registers the browse routes on a router that requires a
// logged in session
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Browse)
	r.POST("/filters/toggle", h.ToggleFilter)
	r.POST("/filters/clear", h.ClearFilters)
	r.POST("/search/expand", h.ExpandCollapse)
	r.GET("/photos/:id/file", h.PhotoFile)
}

type view struct {
	Title       string
	Page        *Page
	Content     string
	Map         *MapView
	TimelineURL string
	MapURL      string
}

// Browse renders the photo browser
func (h *Handler) Browse(c *gin.Context) {
	var search Search
	if err := c.ShouldBindQuery(&search); err != nil {
		c.HTML(http.StatusBadRequest, "error", gin.H{"Title": "Error", "Message": "Error :("})
		return
	}

	page := h.service.Page(c.Request.Context(), auth.SessionFrom(c).UserID, search)
	v := view{
		Title:       "Photonix",
		Page:        page,
		TimelineURL: search.WithMode(ModeTimeline).URL(),
		MapURL:      search.WithMode(ModeMap).URL(),
	}

	content := SelectContent(page)
	if content == ContentMap {
		m, err := NewMapView(MapPhotos(page))
		if err != nil {
			h.logger.Error("Failed to build map", zap.Error(err))
			page.Err = err
			content = ContentError
		}
		v.Map = m
	}
	v.Content = content.String()

	status := http.StatusOK
	if content == ContentError {
		status = http.StatusInternalServerError
	}
	c.HTML(status, "browse", v)
}

// ToggleFilter handles the filter toggle callback
func (h *Handler) ToggleFilter(c *gin.Context) {
	search, ok := h.bindForm(c)
	if !ok {
		return
	}
	c.Redirect(http.StatusSeeOther, search.Toggle(c.PostForm("toggle")).URL())
}

// ClearFilters handles the clear filters callback
func (h *Handler) ClearFilters(c *gin.Context) {
	search, ok := h.bindForm(c)
	if !ok {
		return
	}
	search.Filters = nil
	c.Redirect(http.StatusSeeOther, search.URL())
}

// ExpandCollapse flips the search bar between expanded and collapsed
func (h *Handler) ExpandCollapse(c *gin.Context) {
	search, ok := h.bindForm(c)
	if !ok {
		return
	}
	search.Expanded = !search.Expanded
	c.Redirect(http.StatusSeeOther, search.URL())
}

func (h *Handler) bindForm(c *gin.Context) (Search, bool) {
	var search Search
	if err := c.ShouldBind(&search); err != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return search, false
	}
	return search, true
}

// PhotoFile streams a photo from the library storage
func (h *Handler) PhotoFile(c *gin.Context) {
	userID := auth.SessionFrom(c).UserID

	photo, rc, err := h.files.OpenPhoto(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to open photo", zap.String("photo_id", c.Param("id")), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(photo.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
