// Package app wires every handler, repository, and background worker a
// running instance of pulse needs into a single Container, the way
// cmd/pulse and the CLI/HTTP adapters expect to receive them.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	identitySettings "github.com/felixgeelhaar/pulse/internal/identity/application/settings"
	identityPersistence "github.com/felixgeelhaar/pulse/internal/identity/infrastructure/persistence"

	productivityCommands "github.com/felixgeelhaar/pulse/internal/productivity/application/commands"
	productivityQueries "github.com/felixgeelhaar/pulse/internal/productivity/application/queries"
	productivityServices "github.com/felixgeelhaar/pulse/internal/productivity/application/services"
	productivityPersistence "github.com/felixgeelhaar/pulse/internal/productivity/infrastructure/persistence"

	"github.com/felixgeelhaar/pulse/internal/orchestrator"
	orchestratorNLU "github.com/felixgeelhaar/pulse/internal/orchestrator/infrastructure/nlu"
	orchestratorPersistence "github.com/felixgeelhaar/pulse/internal/orchestrator/infrastructure/persistence"

	schedulingCommands "github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	schedulingQueries "github.com/felixgeelhaar/pulse/internal/scheduling/application/queries"
	schedulingServices "github.com/felixgeelhaar/pulse/internal/scheduling/application/services"
	schedulingSubscribers "github.com/felixgeelhaar/pulse/internal/scheduling/application/subscribers"
	schedulingPersistence "github.com/felixgeelhaar/pulse/internal/scheduling/infrastructure/persistence"

	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/cache"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"

	"github.com/felixgeelhaar/pulse/pkg/config"
	"github.com/felixgeelhaar/pulse/pkg/observability"
)

// Container holds every wired dependency a transport adapter needs.
type Container struct {
	conn database.Connection
	db   *sql.DB

	CreateTaskHandler             *productivityCommands.CreateTaskHandler
	CompleteTaskHandler           *productivityCommands.CompleteTaskHandler
	ArchiveTaskHandler            *productivityCommands.ArchiveTaskHandler
	UpdateTaskHandler             *productivityCommands.UpdateTaskHandler
	StartTaskHandler              *productivityCommands.StartTaskHandler
	RecalculatePrioritiesHandler  *productivityCommands.RecalculatePrioritiesHandler
	GetTaskHandler                *productivityQueries.GetTaskHandler
	ListTasksHandler              *productivityQueries.ListTasksHandler

	AddBlockHandler              *schedulingCommands.AddBlockHandler
	CompleteBlockHandler         *schedulingCommands.CompleteBlockHandler
	RemoveBlockHandler           *schedulingCommands.RemoveBlockHandler
	RescheduleBlockHandler       *schedulingCommands.RescheduleBlockHandler
	AutoScheduleHandler          *schedulingCommands.AutoScheduleHandler
	AutoRescheduleHandler        *schedulingCommands.AutoRescheduleHandler
	ScheduleDayHandler           *schedulingCommands.ScheduleDayHandler
	GeneratePlanHandler          *schedulingCommands.GeneratePlanHandler
	GetScheduleHandler           *schedulingQueries.GetScheduleHandler
	FindAvailableSlotsHandler    *schedulingQueries.FindAvailableSlotsHandler
	ListRescheduleAttemptsHandler *schedulingQueries.ListRescheduleAttemptsHandler

	SettingsService *identitySettings.Service

	Orchestrator *orchestrator.Orchestrator

	EventBus        *eventbus.InProcessEventBus
	OutboxProcessor *outbox.Processor
}

// Close releases the underlying database connection.
func (c *Container) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// NewLocalContainer wires the full application against a local SQLite
// database: zero external services, one file on disk. This is the mode
// the CLI runs in by default.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, db, err := initSQLiteConnection(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c := &Container{conn: conn, db: db}

	taskRepo := productivityPersistence.NewSQLiteTaskRepository(db)
	scoreRepo := productivityPersistence.NewSQLitePriorityScoreRepository(db)
	scheduleRepo := schedulingPersistence.NewSQLiteScheduleRepository(db)
	planRepo := schedulingPersistence.NewSQLitePlanRepository(db, taskRepo, scheduleRepo)
	attemptRepo := schedulingPersistence.NewSQLiteRescheduleAttemptRepository(db)
	settingsRepo := identityPersistence.NewSQLiteSettingsRepository(db)
	conversationRepo := orchestratorPersistence.NewSQLiteConversationRepository(db)
	agentTaskRepo := orchestratorPersistence.NewSQLiteAgentTaskRepository(db)

	outboxRepo := outbox.NewSQLiteRepository(db)
	uow := sharedPersistence.NewSQLiteUnitOfWork(db)

	metrics := observability.NewInMemoryMetrics()
	turnCache := cache.NewInMemoryCache(ctx, "orchestrator", time.Minute)

	// Productivity bounded context.
	c.CreateTaskHandler = productivityCommands.NewCreateTaskHandler(taskRepo, outboxRepo, uow)
	c.CompleteTaskHandler = productivityCommands.NewCompleteTaskHandler(taskRepo, outboxRepo, uow)
	c.ArchiveTaskHandler = productivityCommands.NewArchiveTaskHandler(taskRepo, outboxRepo, uow)
	c.UpdateTaskHandler = productivityCommands.NewUpdateTaskHandler(taskRepo, outboxRepo, uow)
	c.StartTaskHandler = productivityCommands.NewStartTaskHandler(taskRepo, outboxRepo, uow)
	priorityEngine := productivityServices.NewPriorityEngine(productivityServices.DefaultPriorityEngineConfig())
	c.RecalculatePrioritiesHandler = productivityCommands.NewRecalculatePrioritiesHandler(taskRepo, scoreRepo, priorityEngine, uow)
	c.GetTaskHandler = productivityQueries.NewGetTaskHandler(taskRepo)
	c.ListTasksHandler = productivityQueries.NewListTasksHandler(taskRepo)

	// Legacy single-day scheduling surface: fixed-date calendar blocks
	// booked against the SchedulerEngine (see scheduler_engine.go).
	c.AddBlockHandler = schedulingCommands.NewAddBlockHandler(scheduleRepo, outboxRepo, uow)
	c.CompleteBlockHandler = schedulingCommands.NewCompleteBlockHandler(scheduleRepo, outboxRepo, uow)
	c.RemoveBlockHandler = schedulingCommands.NewRemoveBlockHandler(scheduleRepo, outboxRepo, uow)
	c.RescheduleBlockHandler = schedulingCommands.NewRescheduleBlockHandler(scheduleRepo, outboxRepo, uow)

	schedulerEngine := schedulingServices.NewSchedulerEngine(schedulingServices.DefaultSchedulerConfig())
	c.AutoScheduleHandler = schedulingCommands.NewAutoScheduleHandler(scheduleRepo, outboxRepo, uow, schedulerEngine, scoreRepo, logger)
	c.AutoRescheduleHandler = schedulingCommands.NewAutoRescheduleHandler(scheduleRepo, attemptRepo, outboxRepo, uow, schedulerEngine)

	candidateCollector := schedulingServices.NewCandidateCollector(taskRepo)
	idealWeekProvider := schedulingServices.NewIdealWeekConstraintProvider(schedulingServices.NewStaticIdealWeekProvider(nil))
	c.ScheduleDayHandler = schedulingCommands.NewScheduleDayHandler(scheduleRepo, candidateCollector, schedulerEngine, idealWeekProvider, outboxRepo, uow)

	c.GetScheduleHandler = schedulingQueries.NewGetScheduleHandler(scheduleRepo)
	c.FindAvailableSlotsHandler = schedulingQueries.NewFindAvailableSlotsHandler(scheduleRepo)
	c.ListRescheduleAttemptsHandler = schedulingQueries.NewListRescheduleAttemptsHandler(attemptRepo)

	// Multi-day constraint solver pipeline: solves a rolling horizon of
	// plan blocks rather than one calendar day at a time.
	idempotency := cache.NewInMemoryCache(ctx, "scheduler-idempotency", time.Hour)
	schedulerService := schedulingServices.NewDefaultSchedulerService(planRepo, idempotency, metrics, logger, cfg.Scheduler.Solver.Seed)
	c.GeneratePlanHandler = schedulingCommands.NewGeneratePlanHandler(schedulerService, logger)

	c.SettingsService = identitySettings.NewService(settingsRepo)

	// Event-driven auto-scheduling: new tasks trigger a same-day
	// scheduling attempt via the in-process event bus.
	c.EventBus = eventbus.NewInProcessEventBus(logger)
	c.EventBus.RegisterConsumer(schedulingSubscribers.NewSchedulingSubscriber(c.AutoScheduleHandler, taskRepo, logger))
	c.OutboxProcessor = outbox.NewProcessor(outboxRepo, c.EventBus, outbox.DefaultProcessorConfig(), logger)

	// Conversational orchestration: dialog state machine, intent
	// classification, and the task-card/websocket progress layer.
	conversations := orchestrator.NewConversationManager(conversationRepo, turnCache)
	notifier := orchestrator.NewWebSocketNotifier(metrics, logger)
	agentTasks := orchestrator.NewAgentTaskManager(agentTaskRepo, notifier, metrics, logger)
	errorBoundary := orchestrator.NewErrorBoundary(orchestrator.DefaultErrorBoundaryConfig(), metrics, logger)
	states := orchestrator.NewConversationStateManager(turnCache)
	classifier := orchestratorNLU.NewDefaultClassifier(0.55)
	llm := orchestratorNLU.NewDefaultConversationLLM()
	intents := orchestrator.NewIntentProcessor(classifier, llm, states, errorBoundary, logger)
	verifier := orchestrator.NewSemanticVerifier(orchestrator.VerifyModePermissive, true, metrics, logger)

	c.Orchestrator = orchestrator.New(
		conversations, intents, agentTasks, notifier, verifier,
		c.CreateTaskHandler, c.GeneratePlanHandler,
		cfg.Scheduler.DefaultHorizonDays, logger,
	)

	if err := ensureLocalUserExists(ctx, db, cfg.UserID, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure local user exists: %w", err)
	}

	return c, nil
}

func initSQLiteConnection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Connection, *sql.DB, error) {
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	sqliteConn, ok := conn.(*sqlite.Connection)
	if !ok {
		conn.Close()
		return nil, nil, fmt.Errorf("unexpected connection type %T for sqlite driver", conn)
	}

	logger.Info("running SQLite migrations")
	if err := migrations.RunSQLiteMigrations(ctx, sqliteConn.DB()); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("run sqlite migrations: %w", err)
	}

	return conn, sqliteConn.DB(), nil
}

// ensureLocalUserExists creates the single local user row local CLI mode
// operates as, if it isn't there yet.
func ensureLocalUserExists(ctx context.Context, db *sql.DB, userID string, logger *slog.Logger) error {
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check user existence: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	if _, err := db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		userID, "local@pulse.local", "Local User", now, now,
	); err != nil {
		return fmt.Errorf("create local user: %w", err)
	}

	logger.Info("created local user", "user_id", userID)
	return nil
}
