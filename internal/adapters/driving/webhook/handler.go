// Package webhook receives workspace change events over HTTP and turns them
// into indexing jobs. Indexing runs asynchronously; the response only
// acknowledges receipt.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

const (
	// maxBodyBytes bounds an event body.
	maxBodyBytes = 8 << 20

	// defaultRefreshTimeout bounds a re-read for events without a payload.
	defaultRefreshTimeout = 30 * time.Second
)

// Refresher re-reads an entity named by an event that carries no payload.
type Refresher interface {
	Refresh(ctx context.Context, teamID int64, entityType, entityID string) error
}

// Event is a workspace change notification.
type Event struct {
	Type   string         `json:"type"`
	TeamID int64          `json:"team_id"`
	Entity Entity         `json:"entity"`
	Data   map[string]any `json:"data,omitempty"`

	// SourceType overrides the source type derived from the entity.
	SourceType string `json:"source_type,omitempty"`
}

// Entity names the changed object.
type Entity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// response is the acknowledgement body.
type response struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Possible actions reported in the acknowledgement.
const (
	actionIndex   = "index"
	actionDelete  = "delete"
	actionRefresh = "refresh"
	actionIgnore  = "ignore"
)

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRefresher enables re-reading entities for events without a payload.
func WithRefresher(r Refresher) HandlerOption {
	return func(h *Handler) {
		h.refresher = r
	}
}

// WithRefreshTimeout bounds each background re-read.
func WithRefreshTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.refreshTimeout = d
		}
	}
}

// Handler turns change events into dispatcher submissions.
type Handler struct {
	dispatcher     driving.Dispatcher
	refresher      Refresher
	refreshTimeout time.Duration
}

// Ensure Handler implements the interface.
var _ http.Handler = (*Handler)(nil)

// NewHandler creates an event handler.
func NewHandler(dispatcher driving.Dispatcher, opts ...HandlerOption) (*Handler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", domain.ErrInvalidInput)
	}
	h := &Handler{
		dispatcher:     dispatcher,
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP accepts one event. Malformed bodies get 400; every well-formed
// event gets 202 whatever happens to the job.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, response{Status: "error", Error: "method not allowed"})
		return
	}

	var event Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Error: "malformed event: " + err.Error()})
		return
	}
	if err := event.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Status: "error", Error: err.Error()})
		return
	}

	action := h.dispatch(event)
	writeJSON(w, http.StatusAccepted, response{Status: "accepted", Action: action})
}

// dispatch routes an event and returns the action taken.
func (h *Handler) dispatch(event Event) string {
	if event.isDeletion() {
		err := h.dispatcher.SubmitDelete(domain.DeleteJob{
			TeamID:     event.TeamID,
			ResourceID: event.Entity.ID,
		})
		logSubmit(event, err)
		return actionDelete
	}

	if len(event.Data) > 0 {
		st, err := event.sourceType()
		if err != nil {
			logger.Debug("webhook: ignoring %s for %s: %v", event.Type, event.Entity.ID, err)
			return actionIgnore
		}
		err = h.dispatcher.Submit(domain.IndexJob{
			SourceType: st,
			TeamID:     event.TeamID,
			APIPath:    st.DefaultAPIPath(),
			ResourceID: event.Entity.ID,
			Payload:    event.Data,
		})
		logSubmit(event, err)
		return actionIndex
	}

	if h.refresher != nil {
		go h.refresh(event)
		return actionRefresh
	}

	logger.Debug("webhook: ignoring %s for %s: no payload", event.Type, event.Entity.ID)
	return actionIgnore
}

func (h *Handler) refresh(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), h.refreshTimeout)
	defer cancel()
	if err := h.refresher.Refresh(ctx, event.TeamID, event.Entity.Type, event.Entity.ID); err != nil {
		logger.Warn("webhook: refreshing %s %s: %v", event.Entity.Type, event.Entity.ID, err)
	}
}

func (e *Event) validate() error {
	if e.TeamID <= 0 {
		return fmt.Errorf("%w: team_id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(e.Entity.ID) == "" {
		return fmt.Errorf("%w: entity.id is required", domain.ErrInvalidInput)
	}
	return nil
}

func (e *Event) isDeletion() bool {
	return e.Type == "page.deleted" || e.Type == "database.deleted"
}

// sourceType maps the entity type onto the source type of its payload.
func (e *Event) sourceType() (domain.SourceType, error) {
	if e.SourceType != "" {
		return domain.ParseSourceType(e.SourceType)
	}
	switch e.Entity.Type {
	case "page":
		return domain.SourceNotionPage, nil
	case "database":
		return domain.SourceNotionDatabase, nil
	case "block":
		return domain.SourceNotionBlockChildren, nil
	default:
		return "", fmt.Errorf("%w: entity type %q", domain.ErrUnsupportedType, e.Entity.Type)
	}
}

func logSubmit(event Event, err error) {
	switch {
	case err == nil:
		logger.Debug("webhook: queued %s for %s", event.Type, event.Entity.ID)
	case errors.Is(err, domain.ErrPipelineDisabled):
		logger.Debug("webhook: %s for %s not queued: %v", event.Type, event.Entity.ID, err)
	default:
		logger.Warn("webhook: %s for %s not queued: %v", event.Type, event.Entity.ID, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
