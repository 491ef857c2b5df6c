// Command lambda serves pipeline actions as a serverless job handler.
//
// The event is either a job envelope {"id": "...", "input": {...}} or a bare
// action request {"action": "get_news", ...}. Configuration comes from the
// same environment variables as the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tkrnews/newsgather/internal/api"
	"github.com/tkrnews/newsgather/internal/app"
	"github.com/tkrnews/newsgather/internal/config"
	"github.com/tkrnews/newsgather/internal/logger"
)

type handler struct {
	dispatcher *api.Dispatcher
	logger     *slog.Logger
}

// Handle never returns an error for a failed action; failures are reported
// in the envelope so the job still completes.
func (h *handler) Handle(ctx context.Context, event json.RawMessage) (api.JobResult, error) {
	job, err := parseEvent(event)
	if err != nil {
		return api.JobResult{Response: api.Response{Status: "error", Error: err.Error()}}, nil
	}
	h.logger.Info("job received", "id", job.ID, "action", job.Input.Action)
	return api.JobResult{ID: job.ID, Response: h.dispatcher.Dispatch(ctx, job.Input)}, nil
}

func parseEvent(event json.RawMessage) (api.Job, error) {
	var job api.Job
	if err := json.Unmarshal(event, &job); err != nil {
		return job, fmt.Errorf("invalid event: %w", err)
	}
	if job.Input.Action != "" {
		return job, nil
	}
	var req api.Request
	if err := json.Unmarshal(event, &req); err != nil {
		return job, fmt.Errorf("invalid event: %w", err)
	}
	job.Input = req
	return job, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	svc, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	h := &handler{dispatcher: api.NewDispatcher(svc, log), logger: logger.Component(log, "lambda")}
	lambda.Start(h.Handle)
}
