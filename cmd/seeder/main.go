package main

import (
	"context"
	"flag"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/config"
	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/postgres"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	repo "github.com/minhleeee123/MantleFlow-sub001/internal/repository/postgres"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// schema bootstraps the engine tables; all statements are idempotent so the
// seeder can run against a live database
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               UUID PRIMARY KEY,
	email            TEXT NOT NULL UNIQUE,
	wallet_address   TEXT NOT NULL UNIQUE,
	telegram_chat_id BIGINT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS triggers (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL REFERENCES users(id),
	symbol           TEXT NOT NULL,
	side             TEXT NOT NULL,
	condition        TEXT NOT NULL,
	target_price     NUMERIC(38, 18) NOT NULL,
	amount           NUMERIC(38, 18) NOT NULL,
	slippage_percent BIGINT NOT NULL DEFAULT 5,
	smart_conditions JSONB,
	status           TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_triggers_status_created ON triggers (status, created_at);

CREATE TABLE IF NOT EXISTS executions (
	id               UUID PRIMARY KEY,
	trigger_id       UUID NOT NULL REFERENCES triggers(id),
	user_id          UUID NOT NULL REFERENCES users(id),
	symbol           TEXT NOT NULL,
	side             TEXT NOT NULL,
	amount           NUMERIC(38, 18) NOT NULL,
	amount_out       NUMERIC(38, 18) NOT NULL,
	tx_hash          TEXT NOT NULL,
	metrics_snapshot JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_executions_trigger ON executions (trigger_id, created_at);

CREATE TABLE IF NOT EXISTS transactions (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id),
	trigger_id UUID REFERENCES triggers(id),
	token_in   TEXT NOT NULL,
	token_out  TEXT NOT NULL,
	amount_in  NUMERIC(38, 18) NOT NULL,
	amount_out NUMERIC(38, 18) NOT NULL,
	tx_hash    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func main() {
	wallet := flag.String("wallet", "0x90F79bf6EB2c4f870365E785982E1f101E93b906", "demo user wallet address")
	email := flag.String("email", "demo@mantleflow.io", "demo user email")
	schemaOnly := flag.Bool("schema-only", false, "apply schema without demo data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infow("Starting seeder", "database", cfg.Postgres.Database, "schema_only", *schemaOnly)

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Info("Schema applied")

	if *schemaOnly {
		return
	}

	if err := seedDemoData(ctx, pgClient, *wallet, *email); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	log.Info("Seeding complete")
}

// seedDemoData inserts one demo user with a spread of triggers. Re-running
// against an already seeded database is a no-op.
func seedDemoData(ctx context.Context, pgClient *postgres.Client, wallet, email string) error {
	log := logger.Get()

	users := repo.NewUserRepository(pgClient.DB())
	triggers := repo.NewTriggerRepository(pgClient.DB())

	existing, err := users.GetByWallet(ctx, wallet)
	if err == nil {
		log.Infow("Demo user already seeded", "user_id", existing.ID)
		return nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return errors.Wrap(err, "failed to check demo user")
	}

	userID := uuid.New()
	now := time.Now().UTC()

	_, err = pgClient.DB().ExecContext(ctx, `
		INSERT INTO users (id, email, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		userID, email, wallet, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert demo user")
	}
	log.Infow("Demo user created", "user_id", userID, "wallet", wallet)

	demo := []*trigger.Trigger{
		{
			Symbol:      "MNT",
			Side:        trigger.SideSell,
			Condition:   trigger.ConditionBelow,
			TargetPrice: decimal.RequireFromString("0.50"),
			Amount:      decimal.NewFromInt(50),
		},
		{
			Symbol:      "MNT",
			Side:        trigger.SideBuy,
			Condition:   trigger.ConditionBelow,
			TargetPrice: decimal.RequireFromString("0.40"),
			Amount:      decimal.NewFromInt(100),
		},
		{
			Symbol:      "ETH",
			Side:        trigger.SideSell,
			Condition:   trigger.ConditionAbove,
			TargetPrice: decimal.NewFromInt(4000),
			Amount:      decimal.RequireFromString("0.5"),
		},
	}

	// The ETH trigger carries secondary conditions as a smart-condition demo
	if err := demo[2].SetSmartConditions([]trigger.SmartCondition{
		{Metric: trigger.MetricRSI, Operator: trigger.OperatorGT, Value: decimal.NewFromInt(70)},
		{Metric: trigger.MetricGas, Operator: trigger.OperatorLT, Value: decimal.NewFromInt(50)},
	}); err != nil {
		return err
	}

	for _, trg := range demo {
		trg.ID = uuid.New()
		trg.UserID = userID
		trg.SlippagePercent = trigger.DefaultSlippagePercent
		trg.Status = trigger.StatusActive
		trg.CreatedAt = now
		trg.UpdatedAt = now

		if err := triggers.Create(ctx, trg); err != nil {
			return errors.Wrapf(err, "failed to insert trigger %s %s", trg.Side, trg.Symbol)
		}
		log.Infow("Demo trigger created",
			"trigger_id", trg.ID,
			"symbol", trg.Symbol,
			"side", trg.Side,
			"condition", trg.Condition,
			"target", trg.TargetPrice,
		)
	}

	return nil
}
