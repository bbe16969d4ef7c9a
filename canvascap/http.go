package canvascap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/horosafe"
	"github.com/hazyhaar/tilecap/idgen"
	"github.com/hazyhaar/tilecap/kit"
	"github.com/hazyhaar/tilecap/shield"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultMaxBody   = 64 << 10
)

type handlerOptions struct {
	maxBody    int64
	rateLimit  int
	rateWindow time.Duration
}

// HandlerOption configures Handler.
type HandlerOption func(*handlerOptions)

// WithMaxBody caps request bodies. Default: 64 KiB.
func WithMaxBody(n int64) HandlerOption {
	return func(o *handlerOptions) { o.maxBody = n }
}

// WithCaptureRateLimit allows n POST /captures per client per window.
// Default: unlimited.
func WithCaptureRateLimit(n int, window time.Duration) HandlerOption {
	return func(o *handlerOptions) {
		o.rateLimit = n
		o.rateWindow = window
	}
}

// Endpoints exposes a Service as transport-neutral kit endpoints, shared by
// the HTTP API and the MCP tools.
type Endpoints struct {
	Capture kit.Endpoint // *Request -> output.Image
	List    kit.Endpoint // *listReq -> []output.Meta
	Get     kit.Endpoint // *getReq  -> *output.Image
}

type listReq struct {
	Limit int `json:"limit"`
}

type getReq struct {
	ID string `json:"id"`
}

var errNotFound = errors.New("capture not found")

// NewEndpoints wraps svc with request logging.
func NewEndpoints(svc Service, logger *slog.Logger) Endpoints {
	capture := func(ctx context.Context, req any) (any, error) {
		return svc.Capture(ctx, *req.(*Request))
	}
	list := func(ctx context.Context, req any) (any, error) {
		return svc.List(ctx, clampLimit(req.(*listReq).Limit))
	}
	get := func(ctx context.Context, req any) (any, error) {
		id, err := idgen.ParseCapture(req.(*getReq).ID)
		if err != nil {
			return nil, err
		}
		img, err := svc.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, fmt.Errorf("%s: %w", id, errNotFound)
		}
		return img, nil
	}

	return Endpoints{
		Capture: kit.Logging(logger, "capture")(capture),
		List:    kit.Logging(logger, "list")(list),
		Get:     kit.Logging(logger, "get")(get),
	}
}

// Handler returns the HTTP API:
//
//	POST /captures              run a capture, returns metadata
//	GET  /captures              list archived captures (?limit=N)
//	GET  /captures/{id}         archived capture metadata and tile report
//	GET  /captures/{id}/image   archived PNG
//	GET  /health
func Handler(svc Service, logger *slog.Logger, opts ...HandlerOption) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	o := handlerOptions{maxBody: defaultMaxBody}
	for _, opt := range opts {
		opt(&o)
	}
	ep := NewEndpoints(svc, logger)
	rl := shield.NewRateLimiter(o.rateLimit, o.rateWindow)
	rl.SetLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, mw := range shield.APIStack(o.maxBody) {
		r.Use(mw)
	}
	r.Use(kitContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/captures", func(r chi.Router) {
		r.With(rl.Middleware).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					writeError(w, http.StatusRequestEntityTooLarge, err)
					return
				}
				writeError(w, http.StatusBadRequest, err)
				return
			}
			resp, err := ep.Capture(r.Context(), &req)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			img := resp.(output.Image)
			writeJSON(w, http.StatusCreated, img.Meta())
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			resp, err := ep.List(r.Context(), &listReq{Limit: queryInt(r, "limit", defaultListLimit)})
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			metas := resp.([]output.Meta)
			if metas == nil {
				metas = []output.Meta{}
			}
			writeJSON(w, http.StatusOK, metas)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			resp, err := ep.Get(r.Context(), &getReq{ID: chi.URLParam(r, "id")})
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			img := resp.(*output.Image)
			writeJSON(w, http.StatusOK, struct {
				output.Meta
				Report []output.TileOutcome `json:"report"`
			}{img.Meta(), img.Report})
		})

		r.Get("/{id}/image", func(w http.ResponseWriter, r *http.Request) {
			resp, err := ep.Get(r.Context(), &getReq{ID: chi.URLParam(r, "id")})
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			img := resp.(*output.Image)
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
			w.WriteHeader(http.StatusOK)
			w.Write(img.Data)
		})
	})

	return r
}

// kitContext carries the chi request ID into the endpoint context.
func kitContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = kit.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoArchive):
		return http.StatusNotImplemented
	case errors.Is(err, ErrMissingCollaborator), errors.Is(err, ErrEmptyCanvas):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPresent):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, idgen.ErrInvalid),
		errors.Is(err, horosafe.ErrUnsafeScheme),
		errors.Is(err, horosafe.ErrPrivateAddress):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
