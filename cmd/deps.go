package cmd

import (
	"context"
	"fmt"

	"github.com/verid/facegate/internal/config"
	"github.com/verid/facegate/internal/cooldown"
	cooldownmem "github.com/verid/facegate/internal/cooldown/memory"
	cooldownredis "github.com/verid/facegate/internal/cooldown/redis"
	"github.com/verid/facegate/internal/engine"
	"github.com/verid/facegate/internal/evidence"
	"github.com/verid/facegate/internal/geo"
	"github.com/verid/facegate/internal/inference"
	"github.com/verid/facegate/internal/liveness"
	"github.com/verid/facegate/internal/store"
	storemem "github.com/verid/facegate/internal/store/memory"
	storepg "github.com/verid/facegate/internal/store/postgres"
)

// deps bundles everything a command needs to run the pipelines.
type deps struct {
	templates store.TemplateStore
	ledger    store.AttemptLedger
	tracker   cooldown.Tracker
	evidence  *evidence.Store
	gate      *liveness.Gate
	inference *inference.Client
	engine    *engine.Engine

	closers []func() error
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			fmt.Printf("Warning: cleanup failed: %v\n", err)
		}
	}
}

func listAttempts(ctx context.Context, d *deps, userID string, limit int) ([]store.Attempt, error) {
	if userID != "" {
		return d.ledger.ListByIdentity(ctx, userID, limit)
	}
	return d.ledger.ListRecent(ctx, limit)
}

// buildDeps wires the stores, tracker and engine from configuration. With no
// DATABASE_URL everything runs in memory, which is fine for a single kiosk
// but loses state on restart.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}

	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := storepg.NewPool(storepg.Config{
			URL:          cfg.Database.URL,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		d.closers = append(d.closers, pool.Close)

		if err := pool.Migrate(ctx); err != nil {
			d.close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		d.templates = storepg.NewTemplateRepository(pool)
		d.ledger = storepg.NewAttemptLedger(pool)
		fmt.Printf("Using PostgreSQL backend\n")
	} else {
		d.templates = storemem.NewTemplateStore()
		d.ledger = storemem.NewAttemptLedger()
		fmt.Printf("Using in-memory backend (templates and ledger are not persisted)\n")
	}

	if cfg.Redis.URL != "" {
		tracker, err := cooldownredis.NewTracker(cfg.Redis.URL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		d.closers = append(d.closers, tracker.Close)
		d.tracker = tracker
		fmt.Printf("Using Redis cooldown tracker\n")
	} else {
		d.tracker = cooldownmem.NewTracker()
	}

	evidenceStore, err := evidence.NewStore(cfg.Evidence.Dir)
	if err != nil {
		d.close()
		return nil, fmt.Errorf("failed to open evidence store: %w", err)
	}
	d.evidence = evidenceStore

	gate, err := liveness.NewGate(cfg.Liveness.RejectThreshold, cfg.Liveness.AcceptThreshold)
	if err != nil {
		d.close()
		return nil, fmt.Errorf("invalid liveness thresholds: %w", err)
	}
	d.gate = gate

	d.inference = inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)

	d.engine = engine.New(
		engine.Config{
			MinSimilarity: cfg.Recognition.MinSimilarity,
			Fence: geo.Fence{
				AnchorLat:         cfg.Geofence.AnchorLat,
				AnchorLng:         cfg.Geofence.AnchorLng,
				MaxDistanceMeters: cfg.Geofence.MaxDistanceMeters,
			},
			CooldownWindow: cfg.Cooldown.Window,
		},
		gate,
		d.templates,
		d.ledger,
		d.tracker,
		d.evidence,
		d.inference,
		d.inference,
		d.inference,
	)

	return d, nil
}
