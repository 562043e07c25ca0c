package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/nutrivibes/api/internal/auth"
	"github.com/nutrivibes/api/internal/blob"
	"github.com/nutrivibes/api/internal/clients"
	"github.com/nutrivibes/api/internal/config"
	"github.com/nutrivibes/api/internal/dietplans"
	"github.com/nutrivibes/api/internal/followups"
	"github.com/nutrivibes/api/internal/mailer"
	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/notifications"
	"github.com/nutrivibes/api/internal/payments"
	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/storage/memory"
	"github.com/nutrivibes/api/internal/storage/postgres"
	"github.com/nutrivibes/api/internal/subscriptions"
	"github.com/nutrivibes/api/internal/tracking"
)

// Server is the HTTP front of the API: it owns the router, the storage
// backend and the middleware chain.
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	authMiddleware *auth.Middleware
	followups      *followups.Service
}

// New builds a server with storage initialized and all routes registered.
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage picks Postgres when DATABASE_URL is set, falling back to
// the in-memory backend when the connection fails.
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("INFO storage: using in-memory backend")
		s.storage = memory.New()
		return
	}

	log.Println("INFO storage: connecting to PostgreSQL...")
	ctx := context.Background()
	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		log.Printf("WARN storage: PostgreSQL connection failed: %v", err)
		log.Println("WARN storage: falling back to in-memory backend")
		s.storage = memory.New()
		return
	}
	log.Println("INFO storage: PostgreSQL connected")
	s.storage = pgStorage
}

func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	authHandlers := auth.NewHandlers(s.config, authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	// POST /v1/auth/dev-token - local dev JWT, disabled outside AUTH_MODE=dev
	s.mux.HandleFunc("POST /v1/auth/dev-token", authHandlers.HandleDevToken)

	// Meal timings are a dependency of both the roster and the planner,
	// so the service is built first and shared.
	timingsService := mealtimings.NewService(s.storage, s.config.PlanMaxMealsPerDay)

	// Diet plans API
	planService := dietplans.NewService(
		s.storage,
		s.storage,
		s.storage,
		s.storage,
		timingsService,
		s.config.PlanMaxItemsPerSlot,
	)
	planHandler := dietplans.NewHandler(planService)

	s.mux.HandleFunc("GET /v1/clients/{id}/diet-plan", planHandler.HandleGetWeek)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan", planHandler.HandleSaveWeek)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/grid/select", planHandler.HandleGridSelect)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/grid/cancel", planHandler.HandleGridCancel)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/grid/clear", planHandler.HandleGridClear)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/publish", planHandler.HandlePublish)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/unpublish", planHandler.HandleUnpublish)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/publish-all", planHandler.HandlePublishAll)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/week-buffer", planHandler.HandleCopyWeek)
	s.mux.HandleFunc("POST /v1/clients/{id}/diet-plan/week-paste", planHandler.HandlePasteWeek)
	s.mux.HandleFunc("GET /v1/diet-plan/week-buffer", planHandler.HandleGetWeekBuffer)
	s.mux.HandleFunc("DELETE /v1/diet-plan/week-buffer", planHandler.HandleClearWeekBuffer)

	// Clients API (roster + meal timings). Timing edits re-label any
	// week currently open in a planner editing session.
	clientService := clients.NewService(s.storage, timingsService, planService)
	clientHandler := clients.NewHandler(clientService)

	s.mux.HandleFunc("GET /v1/clients", clientHandler.HandleList)
	s.mux.HandleFunc("POST /v1/clients", clientHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/clients/{id}", clientHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/clients/{id}", clientHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/clients/{id}", clientHandler.HandleArchive)
	s.mux.HandleFunc("PATCH /v1/clients/{id}", clientHandler.HandlePatchTimings)
	s.mux.HandleFunc("GET /v1/clients/{id}/meal-timings", clientHandler.HandleGetTimings)

	// Tracking API (weight, water, meal logs, measurements, cycle)
	blobStore, blobMode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Printf("WARN blob: init failed: %v, using local store", err)
		blobStore = blob.NewLocalStore()
		blobMode = config.BlobModeLocal
	}
	log.Printf("INFO httpserver: measurement photos stored via %s", blobMode)

	trackingService := tracking.NewService(
		s.storage,
		s.storage,
		blobStore,
		s.config.MaxWaterMlPerDay,
		s.config.Blob.S3.PresignTTLSeconds,
	)
	trackingHandler := tracking.NewHandler(trackingService, s.config.UploadMaxMB, s.config.UploadAllowedMime)

	s.mux.HandleFunc("POST /v1/logs/weight", trackingHandler.HandleLogWeight)
	s.mux.HandleFunc("GET /v1/logs/weight", trackingHandler.HandleListWeights)
	s.mux.HandleFunc("POST /v1/logs/water", trackingHandler.HandleLogWater)
	s.mux.HandleFunc("GET /v1/logs/water/daily", trackingHandler.HandleWaterDaily)
	s.mux.HandleFunc("POST /v1/logs/meals", trackingHandler.HandleLogMeal)
	s.mux.HandleFunc("GET /v1/logs/meals", trackingHandler.HandleListMealLogs)
	s.mux.HandleFunc("POST /v1/logs/measurements", trackingHandler.HandleAddMeasurement)
	s.mux.HandleFunc("GET /v1/logs/measurements", trackingHandler.HandleListMeasurements)
	s.mux.HandleFunc("GET /v1/logs/measurements/{id}/photo", trackingHandler.HandleGetPhoto)
	s.mux.HandleFunc("POST /v1/logs/cycle", trackingHandler.HandleLogCycle)
	s.mux.HandleFunc("GET /v1/logs/cycle", trackingHandler.HandleListCycles)

	// Subscriptions API (packages + payment links)
	provider := payments.NewProvider(s.config.Payments, log.Default())
	subscriptionService := subscriptions.NewService(s.storage, s.storage, provider, log.Default())
	subscriptionHandler := subscriptions.NewHandler(subscriptionService)

	s.mux.HandleFunc("GET /v1/packages", subscriptionHandler.HandleListPackages)
	s.mux.HandleFunc("POST /v1/packages", subscriptionHandler.HandleCreatePackage)
	s.mux.HandleFunc("POST /v1/clients/{id}/subscriptions", subscriptionHandler.HandleSubscribe)
	s.mux.HandleFunc("GET /v1/clients/{id}/subscriptions", subscriptionHandler.HandleListSubscriptions)
	s.mux.HandleFunc("POST /v1/subscriptions/{id}/activate", subscriptionHandler.HandleActivate)
	s.mux.HandleFunc("POST /v1/subscriptions/{id}/cancel", subscriptionHandler.HandleCancel)

	// Follow-ups API + email reminders
	emailSender, err := mailer.NewSenderFromConfig(s.config, log.Default())
	if err != nil {
		log.Printf("WARN mailer: init failed: %v, using local sender", err)
		emailSender = mailer.NewLocalSender(log.Default())
	}

	s.followups = followups.NewService(
		s.storage,
		s.storage,
		s.storage,
		emailSender,
		s.config.ReminderLeadHours,
		log.Default(),
	)
	followupHandler := followups.NewHandler(s.followups)

	s.mux.HandleFunc("POST /v1/followups", followupHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/followups", followupHandler.HandleList)
	s.mux.HandleFunc("PUT /v1/followups/{id}", followupHandler.HandleReschedule)
	s.mux.HandleFunc("POST /v1/followups/{id}/status", followupHandler.HandleTransition)
	s.mux.HandleFunc("POST /v1/followups/remind-due", followupHandler.HandleRemindDue)

	// Notifications API (client inbox)
	notificationService := notifications.NewService(s.storage)
	notificationHandler := notifications.NewHandler(notificationService)

	s.mux.HandleFunc("GET /v1/notifications", notificationHandler.HandleList)
	s.mux.HandleFunc("GET /v1/notifications/unread-count", notificationHandler.HandleUnreadCount)
	s.mux.HandleFunc("POST /v1/notifications/mark-read", notificationHandler.HandleMarkRead)
	s.mux.HandleFunc("POST /v1/notifications/mark-all-read", notificationHandler.HandleMarkAllRead)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start runs the reminder loop and serves HTTP until the process exits.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.followups.StartReminderLoop(context.Background(), 0)

	// Build middleware chain (outermost first): CORS → Rate Limit → Auth → Router
	var handler http.Handler = s.mux
	handler = s.authMiddleware.RequireAuth(handler)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)

	log.Printf("INFO httpserver: listening on http://localhost%s", addr)
	log.Printf("INFO httpserver: health check at http://localhost%s/healthz", addr)

	return http.ListenAndServe(addr, handler)
}

// Close releases the storage backend.
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
