package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"feedbackhub/backend/internal/auth"
	"feedbackhub/backend/internal/config"
	"feedbackhub/backend/internal/storage"
	"feedbackhub/backend/internal/tenancy"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [flags] [args]

Commands:
  list-apps                              list registered applications
  create-app --name N --slug S           register an application and print its API key
  rotate-key <application_id>            issue a new API key, revoking the old one
  deactivate <application_id>            reject the application's API key
  activate <application_id>              accept the application's API key again
  issue-token --email E [--name N] [--role admin|agent] [--ttl 12h]
                                         sign an operator token
`

// cliOperator acts on behalf of whoever runs the CLI.
var cliOperator = auth.Operator(uuid.Nil, "cli@localhost", "admin cli", auth.RoleAdmin)

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	command, args := os.Args[1], os.Args[2:]
	ctx := context.Background()

	// issue-token needs only the signing secret.
	if command == "issue-token" {
		if err := issueToken(cfg, args); err != nil {
			exit(err)
		}
		return
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	// Redis, when configured, receives key revocations so running servers drop cached keys.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
	}
	store := storage.NewStorageService(db, rdb, storage.WithKeyCacheTTL(cfg.KeyCacheTTL))
	apps := tenancy.NewService(store)

	switch command {
	case "list-apps":
		err = listApps(ctx, apps)
	case "create-app":
		err = createApp(ctx, apps, args)
	case "rotate-key":
		err = withAppID(args, "rotate-key", func(id uuid.UUID) error {
			app, err := apps.RegenerateAPIKey(ctx, cliOperator, id)
			if err != nil {
				return err
			}
			fmt.Printf("New API key for %s: %s\n", app.Slug, app.APIKey)
			fmt.Println("The previous key no longer works. Store this one now, it is not shown again.")
			return nil
		})
	case "deactivate", "activate":
		active := command == "activate"
		err = withAppID(args, command, func(id uuid.UUID) error {
			app, err := apps.UpdateApplication(ctx, cliOperator, id, tenancy.UpdateInput{IsActive: &active})
			if err != nil {
				return err
			}
			fmt.Printf("Application %s is now %s.\n", app.Slug, activeLabel(app.IsActive))
			return nil
		})
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n%s", command, usage)
		os.Exit(1)
	}
	if err != nil {
		exit(err)
	}
}

func exit(err error) {
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func withAppID(args []string, command string, run func(uuid.UUID) error) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: admin %s <application_id>", command)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid application id %q", args[0])
	}
	return run(id)
}

func listApps(ctx context.Context, apps *tenancy.Service) error {
	list, err := apps.ListApplications(ctx, cliOperator)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tKEY\tSTATUS\tCREATED")
	for _, app := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s…\t%s\t%s\n",
			app.ID, app.Slug, app.Name, app.APIKeyPrefix, activeLabel(app.IsActive),
			app.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func createApp(ctx context.Context, apps *tenancy.Service, args []string) error {
	fs := pflag.NewFlagSet("create-app", pflag.ContinueOnError)
	name := fs.String("name", "", "display name")
	slug := fs.String("slug", "", "unique slug (lowercase, digits, hyphens)")
	description := fs.String("description", "", "optional description")
	webhook := fs.String("webhook-url", "", "optional webhook URL")
	origins := fs.StringSlice("origin", nil, "allowed browser origin (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := apps.CreateApplication(ctx, cliOperator, tenancy.CreateInput{
		Name:           *name,
		Slug:           *slug,
		Description:    *description,
		WebhookURL:     *webhook,
		AllowedOrigins: *origins,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Application %s created with id %s\n", app.Slug, app.ID)
	fmt.Printf("API key: %s\n", app.APIKey)
	fmt.Println("Store this key now, it is not shown again.")
	return nil
}

func issueToken(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	email := fs.String("email", "", "operator email")
	name := fs.String("name", "", "operator display name")
	role := fs.String("role", string(auth.RoleAgent), "admin or agent")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	id := fs.String("id", "", "operator id (random when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return errors.New("--email is required")
	}
	r, ok := auth.ParseRole(*role)
	if !ok {
		return fmt.Errorf("invalid role %q", *role)
	}
	operatorID := uuid.New()
	if *id != "" {
		parsed, err := uuid.Parse(*id)
		if err != nil {
			return fmt.Errorf("invalid --id: %w", err)
		}
		operatorID = parsed
	}

	token, err := auth.NewTokenManager(cfg.JWTSecret, *ttl).Issue(operatorID, *email, *name, r)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
