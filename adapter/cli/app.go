package cli

import (
	"github.com/felixgeelhaar/pulse/internal/orchestrator"
	identitySettings "github.com/felixgeelhaar/pulse/internal/identity/application/settings"
	productivityCommands "github.com/felixgeelhaar/pulse/internal/productivity/application/commands"
	productivityQueries "github.com/felixgeelhaar/pulse/internal/productivity/application/queries"
	schedulingCommands "github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	schedulingQueries "github.com/felixgeelhaar/pulse/internal/scheduling/application/queries"
)

// App is the registry of wired handlers every CLI subcommand reaches
// through GetApp(). It is populated once at startup from an
// app.Container and stashed behind a package-level global so leaf
// subcommand files (task/create.go, schedule/day.go, ...) don't need the
// container threaded through cobra's RunE signature.
type App struct {
	CreateTaskHandler            *productivityCommands.CreateTaskHandler
	CompleteTaskHandler          *productivityCommands.CompleteTaskHandler
	ArchiveTaskHandler           *productivityCommands.ArchiveTaskHandler
	UpdateTaskHandler            *productivityCommands.UpdateTaskHandler
	StartTaskHandler             *productivityCommands.StartTaskHandler
	RecalculatePrioritiesHandler *productivityCommands.RecalculatePrioritiesHandler
	GetTaskHandler               *productivityQueries.GetTaskHandler
	ListTasksHandler             *productivityQueries.ListTasksHandler

	AddBlockHandler               *schedulingCommands.AddBlockHandler
	CompleteBlockHandler          *schedulingCommands.CompleteBlockHandler
	RemoveBlockHandler            *schedulingCommands.RemoveBlockHandler
	RescheduleBlockHandler        *schedulingCommands.RescheduleBlockHandler
	AutoScheduleHandler           *schedulingCommands.AutoScheduleHandler
	AutoRescheduleHandler         *schedulingCommands.AutoRescheduleHandler
	ScheduleDayHandler            *schedulingCommands.ScheduleDayHandler
	GeneratePlanHandler           *schedulingCommands.GeneratePlanHandler
	GetScheduleHandler            *schedulingQueries.GetScheduleHandler
	FindAvailableSlotsHandler     *schedulingQueries.FindAvailableSlotsHandler
	ListRescheduleAttemptsHandler *schedulingQueries.ListRescheduleAttemptsHandler

	SettingsService *identitySettings.Service
	Orchestrator    *orchestrator.Orchestrator

	CurrentUserID string
}

// NewApp assembles an App from its handlers.
func NewApp(
	createTaskHandler *productivityCommands.CreateTaskHandler,
	completeTaskHandler *productivityCommands.CompleteTaskHandler,
	archiveTaskHandler *productivityCommands.ArchiveTaskHandler,
	updateTaskHandler *productivityCommands.UpdateTaskHandler,
	startTaskHandler *productivityCommands.StartTaskHandler,
	recalculatePrioritiesHandler *productivityCommands.RecalculatePrioritiesHandler,
	getTaskHandler *productivityQueries.GetTaskHandler,
	listTasksHandler *productivityQueries.ListTasksHandler,
	addBlockHandler *schedulingCommands.AddBlockHandler,
	completeBlockHandler *schedulingCommands.CompleteBlockHandler,
	removeBlockHandler *schedulingCommands.RemoveBlockHandler,
	rescheduleBlockHandler *schedulingCommands.RescheduleBlockHandler,
	autoScheduleHandler *schedulingCommands.AutoScheduleHandler,
	autoRescheduleHandler *schedulingCommands.AutoRescheduleHandler,
	scheduleDayHandler *schedulingCommands.ScheduleDayHandler,
	generatePlanHandler *schedulingCommands.GeneratePlanHandler,
	getScheduleHandler *schedulingQueries.GetScheduleHandler,
	findAvailableSlotsHandler *schedulingQueries.FindAvailableSlotsHandler,
	listRescheduleAttemptsHandler *schedulingQueries.ListRescheduleAttemptsHandler,
	settingsService *identitySettings.Service,
	orch *orchestrator.Orchestrator,
) *App {
	return &App{
		CreateTaskHandler:             createTaskHandler,
		CompleteTaskHandler:           completeTaskHandler,
		ArchiveTaskHandler:            archiveTaskHandler,
		UpdateTaskHandler:             updateTaskHandler,
		StartTaskHandler:              startTaskHandler,
		RecalculatePrioritiesHandler:  recalculatePrioritiesHandler,
		GetTaskHandler:                getTaskHandler,
		ListTasksHandler:              listTasksHandler,
		AddBlockHandler:               addBlockHandler,
		CompleteBlockHandler:          completeBlockHandler,
		RemoveBlockHandler:            removeBlockHandler,
		RescheduleBlockHandler:        rescheduleBlockHandler,
		AutoScheduleHandler:           autoScheduleHandler,
		AutoRescheduleHandler:         autoRescheduleHandler,
		ScheduleDayHandler:            scheduleDayHandler,
		GeneratePlanHandler:           generatePlanHandler,
		GetScheduleHandler:            getScheduleHandler,
		FindAvailableSlotsHandler:     findAvailableSlotsHandler,
		ListRescheduleAttemptsHandler: listRescheduleAttemptsHandler,
		SettingsService:               settingsService,
		Orchestrator:                  orch,
	}
}

// SetCurrentUserID sets the user ID commands run as. In local mode this
// is the single bootstrap user created by app.NewLocalContainer.
func (a *App) SetCurrentUserID(userID string) {
	a.CurrentUserID = userID
}

var app *App

// SetApp installs the app instance leaf commands read through GetApp().
func SetApp(a *App) {
	app = a
}

// GetApp returns the installed app instance, or nil if SetApp hasn't
// been called yet.
func GetApp() *App {
	return app
}
