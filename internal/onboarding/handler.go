package onboarding

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/auth"
)

// Handler serves the onboarding wizard pages
type Handler struct {
	wizard *Wizard
	store  *StateStore
	logger *zap.Logger
}

// NewHandler creates a new onboarding handler
func NewHandler(wizard *Wizard, store *StateStore, logger *zap.Logger) *Handler {
	return &Handler{
		wizard: wizard,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes registers onboarding routes
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	g := router.Group("/onboarding")
	{
		g.GET("", h.resume)
		g.GET("/:step", h.show)
		g.POST("/:step", h.submit)
		g.POST("/:step/fields", h.fields)
		g.GET("/:step/back", h.back)
	}
}

// page is the data handed to every step template
type page struct {
	Title  string
	Result *Result
	Steps  []Step
	Number int
	Total  int
}

func newPage(res *Result) page {
	number := 0
	for i, s := range steps {
		if s.ID == res.Step.ID {
			number = i + 1
		}
	}
	return page{
		Title:  res.Step.Title,
		Result: res,
		Steps:  Steps(),
		Number: number,
		Total:  len(steps),
	}
}

// resume handles GET /onboarding
func (h *Handler) resume(c *gin.Context) {
	state := h.store.Load(auth.SessionID(c))
	c.Redirect(http.StatusSeeOther, h.wizard.Current(state).Path())
}

// show handles GET /onboarding/:step
func (h *Handler) show(c *gin.Context) {
	sid := auth.SessionID(c)
	state := h.store.Load(sid)

	res, err := h.wizard.View(state, StepID(c.Param("step")))
	if err != nil {
		h.fail(c, state, err)
		return
	}
	h.store.Save(sid, state)
	c.HTML(http.StatusOK, res.Step.Template(), newPage(res))
}

// submit handles POST /onboarding/:step
func (h *Handler) submit(c *gin.Context) {
	sid := auth.SessionID(c)
	state := h.store.Load(sid)

	if err := c.Request.ParseForm(); err != nil {
		c.HTML(http.StatusBadRequest, "error", gin.H{"Title": "Error", "Message": "The form could not be read."})
		return
	}

	res, err := h.wizard.Submit(c.Request.Context(), state, StepID(c.Param("step")), c.Request.PostForm)
	if err != nil {
		h.fail(c, state, err)
		return
	}

	switch {
	case len(res.Errors) > 0:
		h.store.Save(sid, state)
		c.HTML(http.StatusUnprocessableEntity, res.Step.Template(), newPage(res))
	case res.Done:
		h.store.Delete(sid)
		c.Redirect(http.StatusSeeOther, "/login")
	default:
		h.store.Save(sid, state)
		c.Redirect(http.StatusSeeOther, res.Next.Path())
	}
}

// fields handles POST /onboarding/:step/fields, re-rendering only the
// conditional part of the form for the values typed so far.
func (h *Handler) fields(c *gin.Context) {
	state := h.store.Load(auth.SessionID(c))

	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	res, err := h.wizard.Fields(state, StepID(c.Param("step")), c.Request.PostForm)
	if err != nil {
		if errors.Is(err, ErrUnknownStep) || errors.Is(err, ErrStepNotReached) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusBadRequest)
		return
	}
	if len(res.Visible) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.HTML(http.StatusOK, res.Step.Template()+"_fields", newPage(res))
}

// back handles GET /onboarding/:step/back
func (h *Handler) back(c *gin.Context) {
	sid := auth.SessionID(c)
	state := h.store.Load(sid)

	prev, err := h.wizard.Back(state, StepID(c.Param("step")))
	if err != nil {
		h.fail(c, state, err)
		return
	}
	h.store.Save(sid, state)
	c.Redirect(http.StatusSeeOther, prev.Path())
}

func (h *Handler) fail(c *gin.Context, state *State, err error) {
	switch {
	case errors.Is(err, ErrUnknownStep):
		c.HTML(http.StatusNotFound, "error", gin.H{"Title": "Not found", "Message": "This onboarding step does not exist."})
	case errors.Is(err, ErrStepNotReached):
		c.Redirect(http.StatusSeeOther, h.wizard.Current(state).Path())
	default:
		h.logger.Error("Onboarding request failed", zap.String("step", c.Param("step")), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Error", "Message": "Something went wrong."})
	}
}
