// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evoflow/backend/internal/analytics"
	"github.com/evoflow/backend/internal/controller"
	"github.com/evoflow/backend/internal/db"
	"github.com/evoflow/backend/internal/dispatch"
	"github.com/evoflow/backend/internal/gateway"
	"github.com/evoflow/backend/internal/handler"
	"github.com/evoflow/backend/internal/queue"
	"github.com/evoflow/backend/internal/repository"
	"github.com/evoflow/backend/internal/scheduler"
	"github.com/evoflow/backend/internal/service"
	"github.com/evoflow/backend/internal/trigger"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	flowRepo := &repository.FlowRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}

	an := analytics.New(prometheus.DefaultRegisterer)
	gw := gateway.NewEvolutionClient()
	dispatcher := dispatch.NewDispatcher(gw, an)

	// Processed-message dedup: Redis when configured, capped memory otherwise.
	var processed trigger.ProcessedStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		processed = trigger.NewRedisStore(addr, os.Getenv("REDIS_PASSWORD"), 0)
		log.Println("✅ Using Redis dedup store at", addr)
	} else {
		processed = trigger.NewMemoryStore(0)
		log.Println("⚠️ REDIS_ADDR not set, dedup history will not survive restarts")
	}

	runQueue := queue.NewInMemoryQueue()
	defer runQueue.Close()
	poller := trigger.NewPoller(gw, processed, runQueue, an)

	var publisher service.DispatchPublisher
	if url := os.Getenv("AMQP_URL"); url != "" {
		p, err := queue.NewAMQPPublisher(url)
		if err != nil {
			log.Println("⚠️ Could not connect to RabbitMQ:", err)
		} else {
			defer p.Close()
			publisher = p
			log.Println("✅ Connected to RabbitMQ")
		}
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Dispatcher:   dispatcher,
		Publisher:    publisher,
		Analytics:    an,
	}

	sched := scheduler.New(campaignRepo, dispatcher, an)
	sched.Start()
	defer sched.Stop()

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}
	automationHandler := handler.NewAutomationHandler(flowRepo, gw, poller, an, campaignService)

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Post("/campaigns/personalized-preview", campaignController.PersonalizedPreview)

	// Flow routes
	r.Post("/flows", automationHandler.CreateFlow)
	r.Get("/flows", automationHandler.ListFlows)
	r.Get("/flows/{id}", automationHandler.GetFlow)
	r.Put("/flows/{id}", automationHandler.UpdateFlow)
	r.Delete("/flows/{id}", automationHandler.DeleteFlow)
	r.Post("/flows/{id}/run", automationHandler.RunFlow)
	r.Get("/runs/{id}", automationHandler.GetRun)
	r.Post("/runs/{id}/stop", automationHandler.StopRun)

	// Auto-responder + dispatch
	r.Post("/automation/start", automationHandler.StartAutomation)
	r.Post("/automation/stop", automationHandler.StopAutomation)
	r.Get("/automation/status", automationHandler.AutomationStatus)
	r.Post("/dispatch", automationHandler.BulkDispatch)
	r.Get("/activity", automationHandler.RecentActivity)

	r.Handle("/metrics", promhttp.Handler())

	log.Println("🚀 Server running on :8080")
	log.Fatal(http.ListenAndServe(":8080", r))
}
