package routes

import (
	"net/http"

	"github.com/Dosada05/poker-league/handlers"
	"github.com/Dosada05/poker-league/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Player      *handlers.PlayerHandler
	Tournament  *handlers.TournamentHandler
	GameDate    *handlers.GameDateHandler
	Timer       *handlers.TimerHandler
	Elimination *handlers.EliminationHandler
	Ranking     *handlers.RankingHandler
	WebSocket   *handlers.WebSocketHandler
}

// InitRoutes wires the full HTTP surface. Reads are public; every mutating
// endpoint sits behind the operator JWT — spectators watch over the socket
// and never hold credentials.
func InitRoutes(h Handlers, auth *middleware.Auth) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Живые обновления; клиент сам делает time_sync рукопожатие после подключения.
	router.Get("/ws/game-dates/{gameDateID}", h.WebSocket.ServeGameDateWS)

	router.Route("/players", func(r chi.Router) {
		r.Get("/", h.Player.ListPlayersHandler)
		r.Get("/{playerID}", h.Player.GetPlayerHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.RequireRole("operator", "admin"))
			r.Post("/", h.Player.CreatePlayerHandler)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/", h.Tournament.ListTournamentsHandler)
		r.Get("/{tournamentID}", h.Tournament.GetTournamentHandler)
		r.Get("/{tournamentID}/blind-levels", h.Tournament.ListBlindLevelsHandler)
		r.Get("/{tournamentID}/game-dates", h.Tournament.ListGameDatesHandler)
		r.Get("/{tournamentID}/ranking", h.Ranking.GetRankingHandler)
		r.Get("/{tournamentID}/points-table", h.Ranking.PointsTableHandler)

		// Защищенные маршруты только для операторов
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.RequireRole("operator", "admin"))

			r.Post("/", h.Tournament.CreateTournamentHandler)
			r.Post("/{tournamentID}/players", h.Tournament.RegisterPlayerHandler)
			r.Post("/{tournamentID}/points-overrides", h.Ranking.CreatePointsOverrideHandler)
		})
	})

	router.Route("/game-dates/{gameDateID}", func(r chi.Router) {
		r.Get("/", h.GameDate.GetGameDateHandler)
		r.Get("/timer", h.Timer.GetTimerSnapshotHandler)
		r.Get("/eliminations", h.Elimination.ListEliminationsHandler)
		r.Get("/eliminations/next-position", h.Elimination.NextPositionHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.RequireRole("operator", "admin"))

			r.Post("/created", h.GameDate.MarkCreatedHandler)
			r.Post("/players", h.GameDate.AssignPlayerHandler)
			r.Delete("/players/{playerID}", h.GameDate.RemovePlayerHandler)
			r.Post("/cancel", h.GameDate.CancelGameDateHandler)
			r.Post("/reset", h.GameDate.ResetGameDateHandler)

			r.Post("/timer/start", h.Timer.StartTimerHandler)
			r.Post("/timer/pause", h.Timer.PauseTimerHandler)
			r.Post("/timer/resume", h.Timer.ResumeTimerHandler)
			r.Post("/timer/adjust", h.Timer.AdjustTimerHandler)

			r.Post("/eliminations", h.Elimination.RecordEliminationHandler)
		})
	})

	return router
}
