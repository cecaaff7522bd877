package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relistco/relist-server/internal/infra/database"
	"github.com/relistco/relist-server/internal/infra/http/handlers"
	"github.com/relistco/relist-server/internal/infra/http/middleware"
	"github.com/relistco/relist-server/internal/infra/integration/catalog"
	"github.com/relistco/relist-server/internal/infra/integration/gemini"
	"github.com/relistco/relist-server/internal/infra/integration/whatsapp"
	"github.com/relistco/relist-server/internal/infra/mail"
	"github.com/relistco/relist-server/internal/infra/queue"
	"github.com/relistco/relist-server/internal/infra/storage"
	"github.com/relistco/relist-server/internal/infra/worker"
	"github.com/relistco/relist-server/internal/usecase"
)

func main() {
	godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(
		os.Getenv("RABBITMQ_USER"), os.Getenv("RABBITMQ_PASS"),
		os.Getenv("RABBITMQ_HOST"), os.Getenv("RABBITMQ_PORT"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositories
	sellerRepo := database.NewSellerRepository(db)
	convoRepo := database.NewConversationRepository(db)
	draftRepo := database.NewDraftRepository(db)

	// 2. Gateways and adapters
	extractor, err := gemini.NewExtractor(ctx, os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatal(err)
	}
	classifier, err := gemini.NewClassifier(ctx, os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatal(err)
	}
	catalogClient := catalog.NewClient(os.Getenv("CATALOG_API_KEY"), os.Getenv("CATALOG_URL"))
	photoStore := storage.NewPhotoStore(
		os.Getenv("SUPABASE_STORAGE_URL"), os.Getenv("SUPABASE_CDN_URL"),
		os.Getenv("SUPABASE_API_KEY"), "listing-photos",
	)
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	mailSender := mail.NewEmailSender(
		os.Getenv("MAIL_HOST"), 587, os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
	)
	whatsappSender := mail.NewWhatsAppSender(whatsapp.NewClient())

	// 3. Workers (queue consumer + attempt-window pruner)
	notifyWorker := queue.NewWorker(rabbitMQ.Ch, mailSender, whatsappSender)
	go notifyWorker.Start(queue.QueueName)

	windowWorker := worker.NewAuthWindowWorker(convoRepo)
	go windowWorker.Start(ctx)

	// 4. UseCases
	sessions := usecase.NewSessionManager(sellerRepo, convoRepo, mailSender)
	photoIntake := usecase.NewPhotoIntake(classifier, photoStore, draftRepo)
	submitListing := usecase.NewSubmitListing(draftRepo, catalogClient, producer)
	machine := usecase.NewMachine(sessions, convoRepo, draftRepo, extractor, photoIntake, submitListing)

	// 5. Handlers
	webhookHandler := handlers.NewWebhookHandler(machine)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/webhook/sms", webhookHandler.Handle)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":8080", Handler: r}
	go func() {
		log.Printf("🔥 Relist server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("🕒 Shutting down, draining in-flight requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Shutdown error: %v", err)
	}
	log.Println("✅ Server stopped")
}
