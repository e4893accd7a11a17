package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/newsbrief/newsbrief/config"
	"github.com/newsbrief/newsbrief/global"
	"github.com/newsbrief/newsbrief/ingest"
	"github.com/newsbrief/newsbrief/router"
	"github.com/newsbrief/newsbrief/rss"
	"github.com/newsbrief/newsbrief/store"
	"github.com/newsbrief/newsbrief/utils"
)

func main() {
	config.InitConfig()

	// Run database migrations
	config.MigrateDB()

	utils.ConfigureJWT(config.AppConfig.Auth.JWTSecret, config.AppConfig.Auth.TokenTTL)

	global.Ingest = ingest.NewService(
		store.NewFeedStore(global.DB),
		store.NewArticleStore(global.DB),
		rss.NewFetcher(config.AppConfig.RSS.FetchTimeout),
		ingest.Config{
			CacheWindow:  config.AppConfig.RSS.CacheWindow,
			ArticleLimit: config.AppConfig.RSS.ArticleLimit,
		},
	)

	r := router.InitRouter()
	port := config.AppConfig.App.Port
	if port == "" {
		port = ":8080"
	}
	srv := &http.Server{
		Addr:    port,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	log.Println("Server exiting")
}
