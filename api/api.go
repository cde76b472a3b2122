package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"hermannm.dev/datasetquery/config"
	"hermannm.dev/datasetquery/engine"
	"hermannm.dev/datasetquery/loader"
	"hermannm.dev/datasetquery/metrics"
	"hermannm.dev/devlog/log"
)

// Uploader stores uploaded dataset files. Implemented by storage.Client.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

type DatasetAPI struct {
	loader   *loader.Loader
	storage  Uploader
	executor *engine.Executor
	metrics  *metrics.Metrics
	router   chi.Router
	config   config.API
}

// NewDatasetAPI registers the API's routes on a new router. metrics may be nil, in which case
// /metrics is not served.
func NewDatasetAPI(
	datasetLoader *loader.Loader,
	storage Uploader,
	executor *engine.Executor,
	metrics *metrics.Metrics,
	config config.API,
) DatasetAPI {
	api := DatasetAPI{
		loader:   datasetLoader,
		storage:  storage,
		executor: executor,
		metrics:  metrics,
		router:   chi.NewRouter(),
		config:   config,
	}

	api.router.Use(middleware.RealIP)
	api.router.Use(logRequests)
	api.router.Use(middleware.Recoverer)
	api.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	api.router.Get("/health", api.Health)
	if metrics != nil {
		api.router.Handle("/metrics", metrics.Handler())
	}

	api.router.Route("/datasets", func(router chi.Router) {
		router.Post("/", api.UploadDataset)
		router.Get("/{datasetID}/profile", api.ProfileDataset)
		router.Post("/{datasetID}/query", api.QueryDataset)
	})

	return api
}

func (api DatasetAPI) Handler() http.Handler {
	return api.router
}

func (api DatasetAPI) ListenAndServe() error {
	server := http.Server{
		Addr:              fmt.Sprintf(":%s", api.config.Port),
		Handler:           api.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infof("listening on port %s", api.config.Port)
	return server.ListenAndServe()
}

func (api DatasetAPI) Health(res http.ResponseWriter, req *http.Request) {
	sendJSON(res, http.StatusOK, map[string]string{"status": "ok"})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		startTime := time.Now()
		wrappedRes := middleware.NewWrapResponseWriter(res, req.ProtoMajor)

		next.ServeHTTP(wrappedRes, req)

		log.Debugf(
			"%s %s -> %d (%s)",
			req.Method, req.URL.Path, wrappedRes.Status(), time.Since(startTime),
		)
	})
}
