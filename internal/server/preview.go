package server

import (
	"net/http"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/gin-gonic/gin"
)

// previewRequest describes a page by its section heights. Sections without
// a height are left out of the layout.
type previewRequest struct {
	Viewport float64                `json:"viewport" binding:"required,gt=0"`
	Scroll   float64                `json:"scroll" binding:"gte=0"`
	Heights  map[section.ID]float64 `json:"heights" binding:"required"`
	ScrollTo section.ID             `json:"scroll_to,omitempty"`
}

type previewResult struct {
	Active   section.ID       `json:"active"`
	ScrollY  float64          `json:"scroll_y"`
	Scrolled bool             `json:"scrolled"`
	Regions  []section.Region `json:"regions"`
}

// previewSections answers which section the navigation would highlight for
// a given layout and scroll offset, using the same band as the live page.
func (s *Server) previewSections(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid preview request"))
		return
	}
	regions := section.StackRegions(req.Heights, section.DefaultIDs)
	if len(regions) == 0 {
		c.Error(apperror.BadRequest("No known sections in heights"))
		return
	}

	layout := section.NewLayout(req.Viewport, regions...)
	tracker := section.NewTracker(layout, layout, s.cfg.Band)
	defer tracker.Close()

	ids := make([]section.ID, 0, len(regions))
	for _, r := range regions {
		ids = append(ids, r.ID)
	}
	if _, err := tracker.Observe(ids); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}
	layout.ScrollTo(req.Scroll)

	var scrolled bool
	if req.ScrollTo != "" {
		scrolled = tracker.ScrollToSection(req.ScrollTo)
	}

	response.Success(c, http.StatusOK, "ok", previewResult{
		Active:   tracker.Active(),
		ScrollY:  layout.ScrollY(),
		Scrolled: scrolled,
		Regions:  regions,
	})
}
