// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/domain/model"
	pg "telegram-translation-bot/internal/infra/db/postgres"
)

// Seeds a few chat sessions and usage counters so /stats and the admin
// dashboard have something to show on a fresh database.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// Dev mode so a bot token is not required just to seed.
	cfg, err := config.Load(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()

	sessions := pg.NewChatSessionRepo(pool, nil)
	stats := pg.NewStatsRepo(pool)

	seed := []struct {
		chatID  int64
		targets []string
		source  string
	}{
		{1001, []string{"en"}, ""},
		{1002, []string{"en", "ru"}, "de"},
		{1003, []string{"es"}, ""},
	}

	now := time.Now()
	for _, s := range seed {
		if existing, err := sessions.FindByChatID(ctx, nil, s.chatID); err == nil && existing != nil {
			fmt.Printf("chat %d already present, skipping\n", s.chatID)
			continue
		}
		sess := model.NewChatSession(s.chatID, s.targets, now)
		sess.SourceLang = s.source
		if err := sessions.Save(ctx, nil, sess); err != nil {
			log.Fatalf("save session %d: %v", s.chatID, err)
		}
		if err := stats.BumpDaily(ctx, nil, model.Date(now), s.chatID, 5, 4, 1); err != nil {
			log.Fatalf("seed stats %d: %v", s.chatID, err)
		}
		fmt.Printf("seeded chat %d -> %v\n", s.chatID, s.targets)
	}
	fmt.Println("Seeding complete.")
}
