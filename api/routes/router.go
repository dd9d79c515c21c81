package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusquest/backend/api/controllers"
	"github.com/nexusquest/backend/api/middleware"
	"github.com/nexusquest/backend/internal/quest"
	"github.com/nexusquest/backend/pkg/config"
	"github.com/nexusquest/backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	ledger controllers.Pinger,
	questService quest.Service,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ledger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/heroes", func(r chi.Router) {
			r.Get("/", controllers.HeroesList(questService, logg))
			r.Post("/", controllers.HeroesCreate(questService, logg))

			r.Route("/{heroId}", func(r chi.Router) {
				r.Get("/", controllers.HeroGet(questService, logg))
				r.Post("/actions", controllers.HeroAct(questService, logg))
				r.Get("/chronicle", controllers.HeroChronicle(questService, logg))
				r.Post("/focus", controllers.FocusSelect(questService, logg))
			})
		})

		r.Route("/focus", func(r chi.Router) {
			r.Get("/", controllers.FocusGet(questService, logg))
			r.Delete("/", controllers.FocusClear(questService, logg))
		})

		r.Route("/market/listings", func(r chi.Router) {
			r.Get("/", controllers.ListingsList(questService, logg))
			r.Post("/", controllers.ListingCreate(questService, logg))
			r.Post("/{heroId}/purchase", controllers.ListingPurchase(questService, logg))
		})
	})

	return r
}
