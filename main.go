package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"
	"github.com/rise-and-shine/persist/alert"
	"github.com/rise-and-shine/persist/cfgloader"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/pg"
	"github.com/rise-and-shine/persist/query"
	"github.com/rise-and-shine/persist/query/pgquery"
	"github.com/rise-and-shine/persist/query/wrapper"
	"github.com/rise-and-shine/persist/rediswr"
	"github.com/rise-and-shine/persist/store"
	"github.com/rise-and-shine/persist/store/pgstore"
	"github.com/rise-and-shine/persist/store/redisstore"
	"github.com/rise-and-shine/persist/tracing"
	"github.com/rise-and-shine/persist/val"
	"github.com/uptrace/bun"
)

type Config struct {
	Service struct {
		Name    string `yaml:"name"    validate:"required"`
		Version string `yaml:"version" default:"dev"`
	} `yaml:"service"`

	Logger   logger.Config       `yaml:"logger"`
	Tracing  tracing.Config      `yaml:"tracing"`
	Postgres pg.Config           `yaml:"postgres"`
	Redis    rediswr.Config      `yaml:"redis"`
	Retry    wrapper.RetryConfig `yaml:"retry"`
	Alert    alert.Config        `yaml:"alert"`

	QueryTimeout time.Duration `yaml:"query_timeout" default:"5s"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`
	pg.Timestamps

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Number   string `bun:"number,notnull,unique" json:"number"   validate:"required"`
	Customer string `bun:"customer,notnull"      json:"customer" validate:"required"`
	Amount   int64  `bun:"amount,notnull"        json:"amount"   validate:"gt=0"`
}

const maxOrderAmount = 10_000

func main() {
	cfg := cfgloader.MustLoad[Config]()

	logger.SetGlobal(cfg.Logger)
	meta.SetServiceInfo(cfg.Service.Name, cfg.Service.Version)

	shutdown, err := tracing.InitGlobalTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalx(err)
	}
	defer func() { _ = shutdown() }()

	alerts, err := alert.NewProvider(cfg.Alert, cfg.Service.Name, cfg.Service.Version)
	if err != nil {
		logger.Fatalx(err)
	}
	if sp, ok := alerts.(*alert.SentinelProvider); ok {
		defer sp.Close()
	}

	db, err := pg.NewBunDB(cfg.Postgres)
	if err != nil {
		logger.Fatalx(err)
	}
	defer db.Close()

	client := rediswr.New(cfg.Redis)
	defer client.Close()

	ctx := context.Background()
	if err = rediswr.Ping(ctx, client); err != nil {
		logger.Fatalx(err)
	}

	order := &Order{Number: "A-1001", Customer: "acme", Amount: 4200}

	created, err := placeOrder(ctx, cfg, db, alerts, order)
	if err != nil {
		logger.Fatalx(err)
	}
	logger.With("order_id", created.ID).Info("order placed")

	if err = markCustomerActive(ctx, cfg, client, created.Customer); err != nil {
		logger.Fatalx(err)
	}
	logger.With("customer", created.Customer).Info("customer marked active")
}

// placeOrder inserts order in a transaction that is rolled back when the order exceeds
// the credit limit. Serialization failures retry the whole transaction, and every failed
// attempt is reported to alerts.
func placeOrder(ctx context.Context, cfg Config, db *bun.DB, alerts alert.Provider, order *Order) (*Order, error) {
	const name = "PlaceOrder"
	l := logger.Named("demo")

	// Runs after the insert, so a rejection rolls the new row back.
	creditLimit := func(_ context.Context, o *Order) error {
		if o.Amount > maxOrderAmount {
			return errx.New("order exceeds credit limit", errx.WithType(errx.T_Conflict),
				errx.WithDetails(errx.D{"customer": o.Customer, "amount": o.Amount}))
		}
		return nil
	}

	insert := query.NewDecorator(
		pgquery.Insert(order),
		query.PreProcessing(val.Schema(order)),
		query.PostProcessing[*Order](creditLimit),
	)

	inTx := query.Chain(
		query.Query[*Order, bun.IDB](insert),
		wrapper.NewMetaWrapper[*Order, bun.IDB](name),
		wrapper.NewTracingWrapper[*Order, bun.IDB](),
		wrapper.NewLoggerWrapper[*Order, bun.IDB](l, name),
		wrapper.NewAlertWrapper[*Order, bun.IDB](l, alerts, name),
		wrapper.NewRecoveryWrapper[*Order, bun.IDB](l, name),
		wrapper.NewTimeoutWrapper[*Order, bun.IDB](cfg.QueryTimeout),
	)

	retried := query.Chain(
		store.InTx(inTx),
		wrapper.NewRetryWrapper[*Order, store.TxRunner[bun.IDB]](cfg.Retry, l, wrapper.WithRetryIf(pg.IsRetryable)),
	)

	return retried.Execute(ctx, pgstore.New(db, pgstore.WithIsolation(sql.LevelSerializable)))
}

// markCustomerActive records the customer in Redis. Nothing is written when the
// customer name is empty.
func markCustomerActive(ctx context.Context, cfg Config, client redis.Cmdable, customer string) error {
	const name = "MarkCustomerActive"
	l := logger.Named("demo")

	mark := query.Func[string, redis.Pipeliner](func(ctx context.Context, pipe redis.Pipeliner) (string, error) {
		pipe.SAdd(ctx, "customers:active", customer)
		pipe.Incr(ctx, "customers:active:version")
		return customer, nil
	})

	q := query.Chain(
		query.NewDecorator(
			query.Query[string, redis.Pipeliner](mark),
			query.PreProcessing(func(context.Context) error {
				if customer == "" {
					return errx.New("customer must not be empty", errx.WithType(errx.T_Validation))
				}
				return nil
			}),
			query.NoPostProcessing[string](),
		),
		wrapper.NewMetaWrapper[string, redis.Pipeliner](name),
		wrapper.NewLoggerWrapper[string, redis.Pipeliner](l, name),
		wrapper.NewTimeoutWrapper[string, redis.Pipeliner](cfg.QueryTimeout),
	)

	_, err := store.Execute(ctx, redisstore.New(client, l), q)
	return err
}
