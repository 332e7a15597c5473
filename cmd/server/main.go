package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kerem-sirin/streamerstash-api/internal/config"
	"github.com/kerem-sirin/streamerstash-api/internal/es"
	"github.com/kerem-sirin/streamerstash-api/internal/handlers"
	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/mykafka"
	"github.com/kerem-sirin/streamerstash-api/internal/service/payments"
	"github.com/kerem-sirin/streamerstash-api/internal/service/uploads"
	httpserver "github.com/kerem-sirin/streamerstash-api/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	stripeClient, err := payments.NewStripeClient(configuration.STRIPE_SECRET_KEY)
	if err != nil {
		log.Fatal(err)
	}

	presigner, err := uploads.NewPresigner(context.Background(), configuration.AWS_S3_BUCKET_NAME)
	if err != nil {
		log.Fatal(err)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.Middleware(logger))

	deps := httpserver.Deps{
		Auth: authmw.New(db, jwtSecret),
		AuthHandler: &handlers.AuthHandler{
			DB:        db,
			JWTSecret: jwtSecret,
			TokenTTL:  configuration.TokenTTL(),
			Producer:  prod,
		},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: prod},
		CartHandler:    &handlers.CartHandler{DB: db, Producer: prod},
		OrderHandler:   &handlers.OrderHandler{DB: db, Producer: prod},
		PaymentHandler: &handlers.PaymentHandler{
			DB:            db,
			Intents:       stripeClient,
			WebhookSecret: configuration.STRIPE_WEBHOOK_SECRET,
			Producer:      prod,
		},
		UploadHandler: &handlers.UploadHandler{Signer: presigner},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: "products"},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
