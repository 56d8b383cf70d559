// Command scottbot runs the chat bot.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"scottbot/internal/config"
	"scottbot/internal/security"
)

func main() {
	setSecret := flag.String("set-secret", "", "store NAME=VALUE in the OS keyring (or the encrypted vault) and exit")
	flag.Parse()

	loader, err := config.NewLoader()
	if err != nil {
		log.Fatalf("failed to create config loader: %v", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	keyStore, err := security.NewKeyStore(loader.Dir(), cfg.Security.MasterPassword, cfg.Security.UseKeyring)
	if err != nil {
		log.Printf("warning: secure storage unavailable: %v", err)
	}

	if *setSecret != "" {
		name, value, ok := strings.Cut(*setSecret, "=")
		if !ok || name == "" || value == "" {
			log.Fatalf("-set-secret expects NAME=VALUE")
		}
		if keyStore == nil {
			log.Fatalf("secure storage unavailable")
		}
		if err := keyStore.Set(name, value); err != nil {
			log.Fatalf("failed to store %s: %v", name, err)
		}
		log.Printf("stored %s (%s)", name, security.MaskKey(value))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg, keyStore)
	if err := app.Start(ctx); err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Shutdown(shutdownCtx)
}
