package http

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/service"
)

// EventSource feeds the /events stream.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}

// Handler handles HTTP requests for the grant registry
type Handler struct {
	registry  *service.GrantRegistry
	events    EventSource
	log       logrus.FieldLogger
	keepAlive time.Duration
}

// New creates a new Handler. events may be nil, which disables /events.
func New(registry *service.GrantRegistry, events EventSource, log logrus.FieldLogger) *Handler {
	return &Handler{
		registry:  registry,
		events:    events,
		log:       log,
		keepAlive: 15 * time.Second,
	}
}

type createGrantRequest struct {
	Funder string  `json:"funder" binding:"required"`
	Amount *uint64 `json:"amount" binding:"required"`
	Info   string  `json:"info"`
}

type registerApplicationRequest struct {
	Applicant string `json:"applicant" binding:"required"`
	Data      string `json:"data"`
}

type approveApplicationRequest struct {
	ProjectIDs []uint64 `json:"project_ids"`
}

type voteRequest struct {
	Message string `json:"message"`
}
