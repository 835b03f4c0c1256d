package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chatsync/backend/internal/auth"
	"chatsync/backend/internal/chathub"
	"chatsync/backend/internal/config"
	"chatsync/backend/internal/models"
	"chatsync/backend/internal/storage"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

const usage = `Usage: admin <command> [args]

Commands:
  migrate                     create or update the chat tables
  seed-user <id> <name> [mobile]
                              insert a profile for local testing
  token <user_id> [ttl]       print a websocket token (ttl like 2h, default from JWT_TTL)
  sidebar <user_id>           print the user's conversation list as JSON`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	db, err := storage.OpenPostgres(cfg.Postgres)
	if err != nil {
		fail(err)
	}
	s := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "migrate":
		if err := s.AutoMigrate(); err != nil {
			fail(err)
		}
		fmt.Println("Migrations applied.")

	case "seed-user":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin seed-user <id> <name> [mobile]")
			os.Exit(1)
		}
		user := &models.User{ID: os.Args[2], Name: os.Args[3]}
		if len(os.Args) > 4 {
			user.Mobile = os.Args[4]
		}
		if err := s.SaveUser(ctx, user); err != nil {
			fail(err)
		}
		fmt.Printf("User %s saved.\n", user.ID)

	case "token":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin token <user_id> [ttl]")
			os.Exit(1)
		}
		ttl := cfg.Auth.TokenTTL
		if len(os.Args) > 3 {
			if ttl, err = time.ParseDuration(os.Args[3]); err != nil {
				fmt.Println("Invalid ttl. Use a Go duration such as 30m or 12h.")
				os.Exit(1)
			}
		}
		resolver := auth.NewResolver(cfg.Auth.Secret, cfg.Auth.Issuer, s)
		if _, err := s.GetUserByID(ctx, os.Args[2]); err != nil {
			fail(err)
		}
		token, err := resolver.IssueToken(os.Args[2], ttl)
		if err != nil {
			fail(err)
		}
		fmt.Println(token)

	case "sidebar":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin sidebar <user_id>")
			os.Exit(1)
		}
		rows, err := chathub.BuildSidebar(ctx, s, os.Args[2])
		if err != nil {
			fail(err)
		}
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			fail(err)
		}
		fmt.Println(string(out))

	default:
		fmt.Printf("Unknown command %q\n\n%s\n", command, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
