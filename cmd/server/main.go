package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"idleforge/internal/config"
	"idleforge/internal/content"
	"idleforge/internal/server"
	"idleforge/internal/session"
	"idleforge/internal/state"
)

func main() {
	cfg, err := config.Load("idleforge.yml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg = config.FromEnv(cfg)

	def, err := content.Load(cfg.ContentPath)
	if err != nil {
		// Content errors block the session entirely; bad data must not
		// reach the economy.
		log.Fatalf("load content: %v", err)
	}
	for _, d := range def.Diagnostics {
		log.Printf("content diagnostic: %s", d)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	sess, err := session.New(session.Options{
		Definition: def,
		Store:      store,
		Logger:     log.Default(),
		OfflineCap: time.Duration(cfg.OfflineCapHours * float64(time.Hour)),
	})
	if err != nil {
		log.Fatalf("build session: %v", err)
	}

	batch, err := sess.Start()
	if err != nil {
		log.Fatalf("start session: %v", err)
	}
	for resource, amount := range batch {
		log.Printf("offline progress: +%.2f %s", amount, resource)
	}

	hub := server.NewHub(log.Default())
	hub.Attach(sess.Bus)
	go hub.Run()

	handler := server.NewHandler(&server.App{
		Session: sess,
		Hub:     hub,
		Logger:  log.Default(),
	}, cfg)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		if err := sess.Checkpoint(); err != nil {
			log.Printf("checkpoint: %v", err)
		}
		store.Close()
		os.Exit(0)
	}()

	log.Printf("idleforge listening on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, handler))
}

func openStore(cfg config.Config) (state.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		return state.NewSQLiteStore(cfg.DataDir)
	case config.StoreMemory:
		return state.NewMemoryStore(), nil
	default:
		return state.NewFileStore(cfg.DataDir, time.Duration(cfg.SaveDelayMS)*time.Millisecond)
	}
}
