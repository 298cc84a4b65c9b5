package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
)

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidIdentity),
		errors.Is(err, domain.ErrInvalidText),
		errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		logging.FromContext(c.Request.Context(), h.log).
			WithError(err).
			WithField("path", c.FullPath()).
			Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a non-negative integer", domain.ErrInvalidInput, name, raw)
	}
	return id, nil
}

func pageQuery(c *gin.Context) (domain.Page, error) {
	var p domain.Page
	for name, dst := range map[string]*uint64{"offset": &p.Offset, "limit": &p.Limit} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return p, fmt.Errorf("%w: %s %q is not a non-negative integer", domain.ErrInvalidInput, name, raw)
		}
		*dst = n
	}
	return domain.ClampPage(p), nil
}
