package gamehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/tenpin-bot/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxUploadBytes = 2 << 20

// Options configures the HTTP routes.
type Options struct {
	// Tokens guards write routes. Nil leaves them open.
	Tokens         jwt.Service
	AllowedOrigins []string
	RateLimit      rate.Limit
	RateBurst      int
}

// GameHTTPHandlers serves the REST API over the game service.
type GameHTTPHandlers struct {
	service   gameservice.Service
	publisher message.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewGameHTTPHandlers creates the handlers. A nil publisher disables
// GameCompleted announcements from HTTP writes.
func NewGameHTTPHandlers(service gameservice.Service, publisher message.Publisher, logger *slog.Logger) *GameHTTPHandlers {
	return &GameHTTPHandlers{
		service:   service,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Routes returns the game API router, meant to be mounted under /api.
func (h *GameHTTPHandlers) Routes(opts Options) chi.Router {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	limiter := NewLaneLimiter(opts.RateLimit, opts.RateBurst)

	r := chi.NewRouter()
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	r.Route("/games", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(limiter, ClientIP))
			r.Get("/{gameID}/scorecard", h.HandleGetScoreCard)
			r.Get("/{gameID}/scorecard.xlsx", h.HandleExportScoreCard)
			r.Get("/{gameID}/chart.png", h.HandleScoreCardChart)
		})

		// Writes are charged per scorer once the token is checked.
		r.Group(func(r chi.Router) {
			if opts.Tokens != nil {
				r.Use(BearerAuthMiddleware(opts.Tokens))
			}
			r.Use(RateLimitMiddleware(limiter, ScorerKey))
			r.Post("/", h.HandleCreateGame)
			r.Post("/{gameID}/frames", h.HandleRecordFrame)
			r.Post("/{gameID}/import", h.HandleImportGame)
			r.Post("/{gameID}/finalize", h.HandleFinalizeGame)
		})
	})
	return r
}

type createGameRequest struct {
	Bowler   string `json:"bowler"`
	Lane     *int   `json:"lane,omitempty"`
	PlayedAt string `json:"played_at,omitempty"`
}

// recordFrameRequest carries either raw rolls or bowling notation.
type recordFrameRequest struct {
	Rolls    []*int `json:"rolls,omitempty"`
	Notation string `json:"notation,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *GameHTTPHandlers) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	playedAt, err := gameservice.ParsePlayedAt(req.PlayedAt, h.now())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	info, err := h.service.CreateGame(r.Context(), req.Bowler, req.Lane, playedAt)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s/scorecard", strings.TrimSuffix(r.URL.Path, "/"), info.GameID))
	writeJSON(w, http.StatusCreated, info)
}

func (h *GameHTTPHandlers) HandleRecordFrame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	var req recordFrameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	var (
		view *gameservice.ScoreCardView
		err  error
	)
	if req.Notation != "" {
		view, err = h.service.RecordFrameNotation(r.Context(), gameID, req.Notation)
	} else {
		view, err = h.service.RecordFrame(r.Context(), gameID, req.Rolls)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if view.CompletedAt != nil {
		h.publishCompleted(r, &gameservice.GameCompletion{
			GameID:      view.GameID,
			Bowler:      view.Bowler,
			FinalScore:  view.Total,
			CompletedAt: *view.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *GameHTTPHandlers) HandleGetScoreCard(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetScoreCard(r.Context(), gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *GameHTTPHandlers) HandleExportScoreCard(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	data, err := h.service.ExportScoreCard(r.Context(), gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="scorecard-%s.xlsx"`, gameID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *GameHTTPHandlers) HandleScoreCardChart(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	data, err := h.service.ScoreCardChart(r.Context(), gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleImportGame accepts an xlsx roll sheet either as the raw request body
// or as the "file" field of a multipart form.
func (h *GameHTTPHandlers) HandleImportGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	view, err := h.service.ImportGame(r.Context(), gameID, data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if view.CompletedAt != nil {
		h.publishCompleted(r, &gameservice.GameCompletion{
			GameID:      view.GameID,
			Bowler:      view.Bowler,
			FinalScore:  view.Total,
			CompletedAt: *view.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *GameHTTPHandlers) HandleFinalizeGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	completion, err := h.service.FinalizeGame(r.Context(), gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.publishCompleted(r, completion)
	writeJSON(w, http.StatusOK, completion)
}

// publishCompleted announces a finished game. Failures are logged only; the
// game is already stored.
func (h *GameHTTPHandlers) publishCompleted(r *http.Request, c *gameservice.GameCompletion) {
	if h.publisher == nil {
		return
	}
	ctx := r.Context()
	msg, err := handlerwrapper.NewJSONMessage(ctx, gameevents.GameCompletedV1, &gameevents.GameCompletedPayloadV1{
		GameID:      c.GameID,
		Bowler:      c.Bowler,
		FinalScore:  c.FinalScore,
		CompletedAt: c.CompletedAt,
	})
	if err == nil {
		err = h.publisher.Publish(gameevents.GameCompletedV1, msg)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to publish game completed event", attr.GameID(c.GameID), attr.Error(err))
	}
}

// writeServiceError maps service errors to status codes. Roll rule
// violations carry their kind so clients can point at the bad roll.
func (h *GameHTTPHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *gamedomain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), string(verr.Kind))
	case errors.Is(err, gameservice.ErrInvalidFrame):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
	case errors.Is(err, gameservice.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, gameservice.ErrGameComplete),
		errors.Is(err, gameservice.ErrGameIncomplete),
		errors.Is(err, gamedb.ErrFrameConflict):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, gameservice.ErrInvalidGame), errors.Is(err, gameservice.ErrInvalidSheet):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	default:
		h.logger.ErrorContext(r.Context(), "Request failed",
			attr.String("method", r.Method),
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func gameIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id", "")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func readUpload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}
