package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bugtracker/tracker-system/internal/api/metrics"
	"github.com/bugtracker/tracker-system/internal/core/domain"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

// BugHandler handles HTTP requests for bug operations.
type BugHandler struct {
	service ports.BugService
}

func NewBugHandler(service ports.BugService) *BugHandler {
	return &BugHandler{service: service}
}

// List handles GET /bugs.
//
// @Summary      List bugs
// @Tags         bugs
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "open, in_progress, resolved, closed or all"
// @Param        priority  query     string  false  "low, medium, high, critical or all"
// @Param        assignee  query     string  false  "username, unassigned or all"
// @Param        search    query     string  false  "case-insensitive match on title and description"
// @Param        page      query     int     false  "page number, from 1"
// @Param        per_page  query     int     false  "page size, max 100"
// @Success      200       {object}  ports.ListBugsResult
// @Failure      400       {object}  errorResponse
// @Router       /bugs [get]
func (h *BugHandler) List(c echo.Context) error {
	var req listBugsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.service.ListBugs(c.Request().Context(), ports.ListBugsInput{
		Status:   req.Status,
		Priority: req.Priority,
		Assignee: req.Assignee,
		Search:   req.Search,
		Page:     req.Page,
		PerPage:  req.PerPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Stats handles GET /bugs/stats.
//
// @Summary      Bug counts by status and priority
// @Tags         bugs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.BugStats
// @Router       /bugs/stats [get]
func (h *BugHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Get handles GET /bugs/:id.
//
// @Summary      Get a bug with comments
// @Tags         bugs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Bug id"
// @Success      200  {object}  ports.BugDetail
// @Failure      404  {object}  errorResponse
// @Router       /bugs/{id} [get]
func (h *BugHandler) Get(c echo.Context) error {
	detail, err := h.service.GetBug(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// Create handles POST /bugs.
//
// @Summary      Report a bug
// @Tags         bugs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createBugRequest  true  "Bug details"
// @Success      201   {object}  bugResponse
// @Failure      400   {object}  errorResponse
// @Router       /bugs [post]
func (h *BugHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req createBugRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	bug, err := h.service.CreateBug(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return err
	}
	metrics.BugMutationsTotal.WithLabelValues(string(domain.ActionCreated)).Inc()

	return c.JSON(http.StatusCreated, bugResponse{Message: "Bug created successfully", Bug: bug})
}

// Update handles PUT /bugs/:id.
//
// @Summary      Update a bug
// @Tags         bugs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Bug id"
// @Param        body  body      updateBugRequest  true  "Fields to change"
// @Success      200   {object}  bugResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /bugs/{id} [put]
func (h *BugHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req updateBugRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	bug, err := h.service.UpdateBug(c.Request().Context(), actor, c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	metrics.BugMutationsTotal.WithLabelValues(string(domain.ActionUpdated)).Inc()

	return c.JSON(http.StatusOK, bugResponse{Message: "Bug updated successfully", Bug: bug})
}

// Delete handles DELETE /bugs/:id.
//
// @Summary      Delete a bug
// @Tags         bugs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Bug id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /bugs/{id} [delete]
func (h *BugHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteBug(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	metrics.BugMutationsTotal.WithLabelValues(string(domain.ActionDeleted)).Inc()

	return c.JSON(http.StatusOK, messageResponse{Message: "Bug deleted successfully"})
}

// AddComment handles POST /bugs/:id/comments.
//
// @Summary      Comment on a bug
// @Tags         bugs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Bug id"
// @Param        body  body      commentRequest  true  "Comment"
// @Success      201   {object}  commentResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /bugs/{id}/comments [post]
func (h *BugHandler) AddComment(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, bug, err := h.service.AddComment(c.Request().Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		return err
	}
	metrics.BugMutationsTotal.WithLabelValues(string(domain.ActionCommented)).Inc()

	return c.JSON(http.StatusCreated, commentResponse{Message: "Comment added successfully", Comment: comment, Bug: bug})
}

// Activity handles GET /bugs/:id/activity.
//
// @Summary      Audit trail of a bug
// @Tags         bugs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Bug id"
// @Success      200  {object}  activityResponse
// @Router       /bugs/{id}/activity [get]
func (h *BugHandler) Activity(c echo.Context) error {
	entries, err := h.service.Activity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activityResponse{Activity: entries})
}
