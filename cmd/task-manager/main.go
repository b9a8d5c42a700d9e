package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"household-task-service/internal/task-manager/api"
	taskDB "household-task-service/internal/task-manager/db"
	tmKafka "household-task-service/internal/task-manager/kafka"
	"household-task-service/internal/task-manager/services"
	gorm_db "household-task-service/pkg/db"
)

func main() {
	stdlog.Println("Household Task Service starting...")

	appCtx, appCancel := context.WithCancel(context.Background())
	// appCancel is called explicitly in graceful shutdown.

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		stdlog.Fatalf("Failed to initialize database: %v", err)
	}
	stdlog.Println("Database initialized successfully.")

	stdlog.Println("Running database migrations...")
	err = gorm_db.AutoMigrate(gormDB,
		&taskDB.Group{},
		&taskDB.GroupMember{},
		&taskDB.RecurringTaskTemplate{},
		&taskDB.Task{},
		&taskDB.GenerationRecord{},
	)
	if err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}
	stdlog.Println("Database migration successful.")

	templateStore := taskDB.NewTemplateStore(gormDB)
	taskStore := taskDB.NewTaskStore(gormDB)
	groupStore := taskDB.NewGroupStore(gormDB)
	recordStore := taskDB.NewGenerationRecordStore(gormDB)

	kafkaProducer := tmKafka.NewTaskGeneratedProducer()

	generationService := services.NewGenerationService(templateStore, taskStore, groupStore, kafkaProducer)
	templateService := services.NewTemplateService(templateStore, groupStore)

	auditService := services.NewAuditService(recordStore)
	auditService.StartConsuming(appCtx)

	var schedulerService *services.SchedulerService
	if services.SweepEnabled() {
		schedulerService, err = services.NewSchedulerService(appCtx, generationService, groupStore)
		if err != nil {
			stdlog.Fatalf("Failed to create scheduler service: %v", err)
		}
		if err := schedulerService.Start(); err != nil {
			stdlog.Fatalf("Failed to start generation sweep: %v", err)
		}
	} else {
		stdlog.Println("Generation sweep disabled; recurring tasks generate lazily on task-list reads.")
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	hlog.SetOutput(os.Stdout)
	hlog.SetLevel(hlog.LevelInfo)

	h := server.Default(server.WithHostPorts(serverAddr), server.WithExitWaitTime(5*time.Second))

	groupHandler := api.NewGroupHandler(groupStore)
	templateHandler := api.NewTemplateHandler(templateService)
	taskHandler := api.NewTaskHandler(taskStore, groupStore, recordStore, generationService)

	groupGroup := h.Group("/groups")
	{
		groupGroup.POST("", groupHandler.CreateGroup)
		groupGroup.POST("/:group_id/members", groupHandler.AddMember)
		groupGroup.POST("/:group_id/templates", templateHandler.CreateTemplate)
		groupGroup.GET("/:group_id/templates", templateHandler.GetTemplates)
		groupGroup.GET("/:group_id/tasks", taskHandler.ListGroupTasks)
		groupGroup.POST("/:group_id/templates/:id/generate", taskHandler.GenerateNow)
		groupGroup.GET("/:group_id/generation-records", taskHandler.ListGenerationRecords)
	}
	templateGroup := h.Group("/templates")
	{
		templateGroup.GET("/:id", templateHandler.GetTemplateByID)
		templateGroup.PATCH("/:id", templateHandler.UpdateTemplate)
		templateGroup.DELETE("/:id", templateHandler.DeleteTemplate)
	}

	h.GET("/ping", func(c context.Context, ctxReq *app.RequestContext) {
		ctxReq.JSON(http.StatusOK, utils.H{"message": "pong"})
	})

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		hlog.Infof("Received signal: %s. Initiating graceful shutdown...", sig)

		appCancel()

		shutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer httpShutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("Hertz server shutdown error: %v", err)
		} else {
			hlog.Info("Hertz server gracefully stopped.")
		}

		if schedulerService != nil {
			schedulerService.Stop()
		}

		auditService.Close()
		hlog.Info("Audit consumer closed.")

		if err := kafkaProducer.Close(); err != nil {
			hlog.Errorf("Kafka producer close error: %v", err)
		} else {
			hlog.Info("Kafka producer closed.")
		}
		hlog.Info("Household Task Service gracefully shut down.")
	}()

	hlog.Infof("Household Task Service fully initialized and starting Hertz server on %s...", serverAddr)
	h.Spin()

	stdlog.Println("Household Task Service has been shut down.")
}
