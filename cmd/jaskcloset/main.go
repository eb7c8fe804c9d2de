package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jask/jaskcloset/internal/config"
	"github.com/jask/jaskcloset/internal/database"
	"github.com/jask/jaskcloset/internal/database/repository"
	"github.com/jask/jaskcloset/internal/llm"
	"github.com/jask/jaskcloset/internal/logging"
	"github.com/jask/jaskcloset/internal/mail"
	"github.com/jask/jaskcloset/internal/secrets"
	"github.com/jask/jaskcloset/internal/service"
)

const usage = `usage: jaskcloset <command> [flags]

commands:
  auth       store a mailbox refresh token for a user
  scan       run a mailbox scan for a user
  review     list a user's pending review items
  approve    approve a pending review item
  reject     reject a pending review item
  add        queue a manual item
  wardrobe   list a user's approved items
  wear       log one wear of an item
  set-color  record an item's dominant color
  analytics  print a user's analytics rollup
  seed-demo  create demo accounts and queue history
`

type app struct {
	cfg       config.Config
	log       *zap.Logger
	db        *sql.DB
	users     *repository.UserRepo
	scanner   *service.Scanner
	review    *service.ReviewService
	wardrobe  *service.WardrobeService
	analytics *service.AnalyticsService
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := wire()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.db.Close()
	defer func() { _ = a.log.Sync() }()

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "jaskcloset: %v\n", err)
		os.Exit(1)
	}
}

func wire() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	users := repository.NewUserRepo(db)
	cursors := repository.NewScanCursorRepo(db)
	queue := repository.NewReviewQueueRepo(db)
	wardrobe := repository.NewWardrobeRepo(db)
	analyticsRepo := repository.NewAnalyticsRepo(db)

	analytics := &service.AnalyticsService{Queue: queue, Analytics: analyticsRepo}
	review := &service.ReviewService{Queue: queue, Wardrobe: wardrobe, Currency: cfg.Scan.Currency}
	closet := &service.WardrobeService{Wardrobe: wardrobe}
	scanner := &service.Scanner{
		Users:      users,
		Cursors:    cursors,
		Queue:      queue,
		Analytics:  analytics,
		Mail:       mailProvider(cfg),
		Extractor:  extractor(cfg, logger),
		Log:        logger,
		Currency:   cfg.Scan.Currency,
		MaxResults: cfg.Scan.MaxResults,
	}

	return &app{
		cfg:       cfg,
		log:       logger,
		db:        db,
		users:     users,
		scanner:   scanner,
		review:    review,
		wardrobe:  closet,
		analytics: analytics,
	}, nil
}

func mailProvider(cfg config.Config) mail.Provider {
	// fixture is the only built-in provider; a live mailbox client satisfies
	// the same interface.
	return mail.NewFixtureProvider(cfg.Mail.FixtureDir)
}

func extractor(cfg config.Config, logger *zap.Logger) llm.Extractor {
	if cfg.LLM.Provider == "claude" {
		key := cfg.APIKeyResolved()
		if key != "" {
			return llm.NewClaudeExtractor(key, cfg.LLM.Model)
		}
		logger.Warn("claude extractor selected but no API key resolved, using heuristic")
	}
	return llm.NewHeuristicExtractor()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "auth":
		return a.cmdAuth(ctx, args)
	case "scan":
		return a.cmdScan(ctx, args)
	case "review":
		return a.cmdReview(ctx, args)
	case "approve":
		return a.cmdApprove(ctx, args)
	case "reject":
		return a.cmdReject(ctx, args)
	case "add":
		return a.cmdAdd(ctx, args)
	case "wardrobe":
		return a.cmdWardrobe(ctx, args)
	case "wear":
		return a.cmdWear(ctx, args)
	case "set-color":
		return a.cmdSetColor(ctx, args)
	case "analytics":
		return a.cmdAnalytics(ctx, args)
	case "seed-demo":
		return a.cmdSeedDemo(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdAuth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	token := fs.String("token", "", "mailbox refresh token")
	_ = fs.Parse(args)
	if *user == "" || *token == "" {
		return fmt.Errorf("--user and --token are required")
	}

	u, err := a.users.Get(ctx, *user)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("unknown user %q", *user)
	}
	sealed, err := secrets.SealToken(*token)
	if err != nil {
		return err
	}
	if err := a.users.UpdateRefreshToken(ctx, *user, &sealed); err != nil {
		return err
	}
	return printJSON(map[string]bool{"ok": true})
}

func (a *app) cmdScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	mode := fs.String("mode", "incremental", "initial or incremental")
	window := fs.Int("window", 90, "initial scan window in days (30, 90, 180)")
	_ = fs.Parse(args)
	if *user == "" {
		return fmt.Errorf("--user is required")
	}

	res, err := a.scanner.Scan(ctx, *user, service.ScanMode(*mode), *window)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func (a *app) cmdReview(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	_ = fs.Parse(args)
	if *user == "" {
		return fmt.Errorf("--user is required")
	}

	items, err := a.review.ListPending(ctx, *user)
	if err != nil {
		return err
	}
	return printJSON(items)
}

func (a *app) cmdApprove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	item := fs.String("item", "", "review item id")
	name := fs.String("name", "", "override item name")
	category := fs.String("category", "", "override category")
	price := fs.Int64("price", -1, "override price in cents")
	_ = fs.Parse(args)
	if *user == "" || *item == "" {
		return fmt.Errorf("--user and --item are required")
	}

	var ov service.ApproveOverrides
	if *name != "" {
		ov.ItemName = name
	}
	if *category != "" {
		ov.Category = category
	}
	if *price >= 0 {
		ov.PriceCents = price
	}

	res, err := a.review.Approve(ctx, *user, *item, ov)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func (a *app) cmdReject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reject", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	item := fs.String("item", "", "review item id")
	_ = fs.Parse(args)
	if *user == "" || *item == "" {
		return fmt.Errorf("--user and --item are required")
	}

	if err := a.review.Reject(ctx, *user, *item); err != nil {
		return err
	}
	return printJSON(map[string]bool{"ok": true})
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	name := fs.String("name", "", "item name")
	merchant := fs.String("merchant", "", "merchant")
	category := fs.String("category", "", "category")
	price := fs.Int64("price", -1, "price in cents")
	_ = fs.Parse(args)
	if *user == "" {
		return fmt.Errorf("--user is required")
	}

	in := service.ManualItem{ItemName: *name}
	if *merchant != "" {
		in.Merchant = merchant
	}
	if *category != "" {
		in.Category = category
	}
	if *price >= 0 {
		in.PriceCents = price
	}

	id, err := a.review.AddManual(ctx, *user, in)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"id": id})
}

func (a *app) cmdWardrobe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wardrobe", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	_ = fs.Parse(args)
	if *user == "" {
		return fmt.Errorf("--user is required")
	}

	items, err := a.wardrobe.List(ctx, *user)
	if err != nil {
		return err
	}
	return printJSON(items)
}

func (a *app) cmdWear(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wear", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	item := fs.String("item", "", "wardrobe item id")
	_ = fs.Parse(args)
	if *user == "" || *item == "" {
		return fmt.Errorf("--user and --item are required")
	}

	count, err := a.wardrobe.LogWear(ctx, *user, *item)
	if err != nil {
		return err
	}
	return printJSON(map[string]int{"wear_count": count})
}

func (a *app) cmdSetColor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-color", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	item := fs.String("item", "", "wardrobe item id")
	color := fs.String("color", "", "dominant color, empty clears")
	_ = fs.Parse(args)
	if *user == "" || *item == "" {
		return fmt.Errorf("--user and --item are required")
	}

	if err := a.wardrobe.SetColor(ctx, *user, *item, *color); err != nil {
		return err
	}
	return printJSON(map[string]bool{"ok": true})
}

func (a *app) cmdAnalytics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	_ = fs.Parse(args)
	if *user == "" {
		return fmt.Errorf("--user is required")
	}

	a2, err := a.analytics.Get(ctx, *user)
	if err != nil {
		return err
	}
	return printJSON(a2)
}

func (a *app) cmdSeedDemo(ctx context.Context) error {
	if err := database.SeedDemo(ctx, a.db, a.cfg.Scan.Currency); err != nil {
		return err
	}
	// demo accounts get fresh rollups immediately
	for _, email := range []string{"sofia@demo.jaskcloset.dev", "marcus@demo.jaskcloset.dev"} {
		u, err := a.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u == nil {
			continue
		}
		if err := a.analytics.Recompute(ctx, u.ID); err != nil {
			return err
		}
	}
	a.log.Info("demo data seeded")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
