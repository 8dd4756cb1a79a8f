package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/opencampus/studysync/internal/auth/google"
	"github.com/opencampus/studysync/internal/auth/token"
	"github.com/opencampus/studysync/internal/calendar"
	"github.com/opencampus/studysync/internal/config"
	"github.com/opencampus/studysync/internal/db"
	"github.com/opencampus/studysync/internal/events"
	"github.com/opencampus/studysync/internal/groups"
	"github.com/opencampus/studysync/internal/logging"
	"github.com/opencampus/studysync/internal/middleware"
	"github.com/opencampus/studysync/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	credStore := db.NewCredentialStore(database)
	tokenManager := token.NewManager(credStore)
	syncer := calendar.NewSyncer(tokenManager, calendar.NewGoogleProvider())
	groupService := groups.NewService(database)
	eventService := events.NewService(database, syncer, groupService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(logging.Middleware)

	// Health check, no auth.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": version.Version})
	})

	// OAuth flow. The callback arrives from Google without a session;
	// the state token carries the user's identity instead.
	r.Get("/auth/google/callback", google.HandleCallback(database, credStore))

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(database))
		r.Get("/auth/google/authorize", google.HandleAuthorize())
		r.Post("/auth/google/disconnect", google.HandleDisconnect(credStore))
		r.Get("/auth/google/status", google.HandleStatus(credStore))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SessionAuth(database))

		r.Post("/events/create", events.CreateHandler(eventService))
		r.Post("/events/{id}/cancel", events.CancelHandler(eventService))
		r.Get("/events/{id}", events.GetHandler(eventService))
		r.Post("/respond", events.RespondHandler(eventService))

		r.Post("/groups", groups.CreateHandler(groupService))
		r.Post("/groups/{id}/members", groups.AddMemberHandler(groupService))
		r.Get("/groups/{id}/members", groups.MembersHandler(groupService))
	})

	addr := cfg.Host + ":" + cfg.Port
	log.Printf("🚀 StudySync %s starting on http://%s", version.Version, addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
