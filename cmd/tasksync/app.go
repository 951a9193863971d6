package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/notification"
	"github.com/phrazzld/tasksync/internal/platform/mongodb"
	"github.com/phrazzld/tasksync/internal/platform/postgres"
	"github.com/phrazzld/tasksync/internal/platform/rabbitmq"
	"github.com/phrazzld/tasksync/internal/redact"
	"github.com/phrazzld/tasksync/internal/service"
	"github.com/phrazzld/tasksync/internal/store"
)

// errNotificationsRequireMongo is returned when the notification store is
// requested with a non-mongodb store driver.
var errNotificationsRequireMongo = errors.New("notifications require the mongodb store driver")

// application holds the shared dependencies of a command and ensures proper
// cleanup on exit. Connections are opened on first use, so each command only
// dials what it needs. Fields that are already set are used as-is.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Metrics
	registry *prometheus.Registry
	metrics  *rabbitmq.Metrics

	// Connections
	db          *sql.DB
	mongoClient *mongo.Client
	broker      *rabbitmq.Publisher

	// brokerOptions are passed to every publisher and consumer.
	brokerOptions []rabbitmq.Option

	// Stores and services
	taskStore     store.TaskStore
	notifications notification.Store
	publisher     events.Publisher
	taskService   service.TaskService
}

// newApplication creates an application for cfg with a private metrics
// registry. Nothing is dialed until a component is requested.
func newApplication(cfg *config.Config, logger *slog.Logger) *application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := rabbitmq.NewMetrics(registry)

	return &application{
		config:        cfg,
		logger:        logger,
		registry:      registry,
		metrics:       metrics,
		brokerOptions: []rabbitmq.Option{rabbitmq.WithMetrics(metrics)},
	}
}

// openMongo connects the shared mongo client.
func (app *application) openMongo(ctx context.Context) (*mongo.Client, error) {
	if app.mongoClient != nil {
		return app.mongoClient, nil
	}

	client, err := mongodb.Connect(ctx, app.config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	app.logger.Info("connected to document store",
		"driver", "mongodb",
		"database", app.config.Store.Database)

	app.mongoClient = client
	return client, nil
}

// openTaskStore returns the task store for the configured driver.
func (app *application) openTaskStore(ctx context.Context) (store.TaskStore, error) {
	if app.taskStore != nil {
		return app.taskStore, nil
	}

	cfg := app.config.Store
	switch cfg.Driver {
	case "mongodb":
		client, err := app.openMongo(ctx)
		if err != nil {
			return nil, err
		}
		coll := client.Database(cfg.Database).Collection(cfg.Collection)
		app.taskStore = mongodb.NewMongoTaskStore(coll, client, app.logger)

	case "postgres":
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		app.db = db

		if err := postgres.EnsureSchema(ctx, db, cfg.Collection); err != nil {
			return nil, fmt.Errorf("failed to prepare task table: %w", err)
		}
		app.logger.Info("connected to document store",
			"driver", "postgres",
			"table", cfg.Collection)
		app.taskStore = postgres.NewPostgresTaskStore(db, cfg.Collection, app.logger)

	default:
		return nil, fmt.Errorf("%w: unsupported store driver %q", config.ErrInvalidConfig, cfg.Driver)
	}

	return app.taskStore, nil
}

// openPublisher connects the event publisher.
func (app *application) openPublisher() (events.Publisher, error) {
	if app.publisher != nil {
		return app.publisher, nil
	}

	p, err := rabbitmq.NewPublisher(app.config.Broker, app.logger, app.brokerOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	app.broker = p
	app.publisher = p
	return p, nil
}

// openTaskService wires the task store and publisher into a TaskService.
func (app *application) openTaskService(ctx context.Context) (service.TaskService, error) {
	if app.taskService != nil {
		return app.taskService, nil
	}

	tasks, err := app.openTaskStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.openPublisher()
	if err != nil {
		return nil, err
	}

	svc, err := service.NewTaskService(tasks, publisher, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.taskService = svc
	return svc, nil
}

// openNotificationStore returns the notification store, which lives next to
// the task collection in mongodb.
func (app *application) openNotificationStore(ctx context.Context) (notification.Store, error) {
	if app.notifications != nil {
		return app.notifications, nil
	}
	if app.config.Store.Driver != "mongodb" {
		return nil, errNotificationsRequireMongo
	}

	client, err := app.openMongo(ctx)
	if err != nil {
		return nil, err
	}

	coll := client.Database(app.config.Store.Database).Collection(app.config.Notifier.Collection)
	app.notifications = mongodb.NewMongoNotificationStore(coll, app.logger)
	return app.notifications, nil
}

// pingStore checks whichever store connection is open.
func (app *application) pingStore(ctx context.Context) error {
	switch {
	case app.mongoClient != nil:
		if err := app.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			return fmt.Errorf("%w: %s", store.ErrStoreUnavailable, redact.Error(err))
		}
	case app.db != nil:
		if err := app.db.PingContext(ctx); err != nil {
			return fmt.Errorf("%w: %s", store.ErrStoreUnavailable, redact.Error(err))
		}
	case app.taskStore != nil:
		return app.taskStore.Ping(ctx)
	}
	return nil
}

// cleanup releases every connection the application opened.
func (app *application) cleanup() {
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Error("Error closing broker connection", "error", redact.Error(err))
		}
	}

	if app.mongoClient != nil {
		if err := app.mongoClient.Disconnect(context.Background()); err != nil {
			app.logger.Error("Error disconnecting from mongodb", "error", redact.Error(err))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Debug("Application shutdown completed")
}
