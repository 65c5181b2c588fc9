package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillhub.io/skill-exchange/internal/api"
	"skillhub.io/skill-exchange/internal/auth"
	"skillhub.io/skill-exchange/internal/config"
	"skillhub.io/skill-exchange/internal/core"
	"skillhub.io/skill-exchange/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for loading demo fixtures
	seedFlag := flag.Bool("seed", false, "Load demo users and skills and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	if *seedFlag {
		log.Println("Seeding demo data...")
		if err := seedDemoData(dbStore); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeding complete. Exiting.")
		os.Exit(0)
	}

	// Initialize core services
	userService := core.NewUserService(dbStore)
	swapService := core.NewSwapService(dbStore)
	conversationService := core.NewConversationService(dbStore)
	ratingService := core.NewRatingService(dbStore)
	syncService := core.NewSyncService(dbStore)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(userService, swapService, conversationService, ratingService, syncService)
	sendLimiter := api.NewLimiterStore(config.AppConfig.SendRatePerMinute, config.AppConfig.SendBurst, 5*time.Minute)
	defer sendLimiter.Stop()
	router := api.NewRouter(apiHandler, sendLimiter)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

// seedDemoData loads a pair of demo accounts with a few skills each, enough
// to exercise the swap flow by hand. Password for both accounts: "password123".
func seedDemoData(dbStore *store.SQLiteStore) error {
	ctx := context.Background()

	hash, err := auth.HashPassword("password123")
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	demo := map[string][][2]string{
		"alice": {{"Guitar lessons", "Music"}, {"Sourdough baking", "Cooking"}},
		"bob":   {{"Spanish conversation", "Languages"}, {"Bike repair", "DIY"}},
	}

	for name, skills := range demo {
		existing, err := dbStore.GetUserByDisplayName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Printf("User %s already exists, skipping", name)
			continue
		}

		user, err := dbStore.CreateUser(ctx, name, hash)
		if err != nil {
			return err
		}
		for _, s := range skills {
			if _, err := dbStore.CreateSkill(ctx, user.ID, s[0], s[1]); err != nil {
				return err
			}
		}
		log.Printf("Seeded user %s with %d skills", name, len(skills))
	}
	return nil
}
