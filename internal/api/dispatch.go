package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tkrnews/newsgather/internal/app"
	"github.com/tkrnews/newsgather/internal/host"
	"github.com/tkrnews/newsgather/internal/logger"
	"github.com/tkrnews/newsgather/internal/news"
)

const statusError = "error"

var errRegionRequired = fmt.Errorf("%w: province is required", app.ErrInvalidInput)

// Dispatcher routes action requests to the pipeline.
type Dispatcher struct {
	svc    *app.Service
	logger *slog.Logger
}

func NewDispatcher(svc *app.Service, log *slog.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, logger: logger.Component(log, "dispatcher")}
}

// Dispatch runs req and wraps the outcome in a Response. It never panics
// on bad input and never returns a bare error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	out, err := d.Handle(ctx, req)
	if err != nil {
		d.logger.Error("action failed", "action", req.Action, "error", err)
		return Response{Status: statusError, Error: err.Error()}
	}
	return Response{Status: app.StatusSuccess, Output: out}
}

// Handle runs req and returns the raw action output.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (any, error) {
	switch Action(strings.ToLower(strings.TrimSpace(req.Action))) {
	case ActionGetProvinces:
		regions := d.svc.Regions()
		return ProvincesOutput{Provinces: regions, Total: len(regions)}, nil

	case ActionGetNews:
		name := req.regionName()
		if name == "" {
			return nil, errRegionRequired
		}
		res, err := d.svc.Fetch(ctx, name, app.FetchOptions{
			Limit:  clampLimit(req.Limit, 0, MaxNewsLimit),
			Enrich: req.scrape(),
			Save:   req.SaveToDB || req.SaveToLocal,
		})
		if err != nil {
			return nil, err
		}
		return res, nil

	case ActionScrapeURLs:
		res, err := d.svc.Scrape(ctx, req.URLs)
		if err != nil {
			return nil, err
		}
		return res, nil

	case ActionProcessNews:
		articles := make([]news.ArticleRecord, len(req.Articles))
		for i, a := range req.Articles {
			articles[i] = a.Record()
		}
		res, err := d.svc.Rewrite(ctx, articles, req.HostType, req.regionName())
		if err != nil {
			return nil, err
		}
		return res, nil

	case ActionFetchAndProcess:
		name := req.regionName()
		if name == "" {
			return nil, errRegionRequired
		}
		res, err := d.svc.FetchAndRewrite(ctx, name, req.HostType, app.FetchOptions{
			Limit:  clampLimit(req.Limit, DefaultProcessLimit, MaxProcessLimit),
			Enrich: req.scrape(),
		})
		if err != nil {
			return nil, err
		}
		return res, nil

	case ActionRunPipeline:
		name := req.regionName()
		if name == "" {
			return nil, errRegionRequired
		}
		res, err := d.svc.FetchAndRewriteAll(ctx, name, req.HostTypes, app.FetchOptions{
			Limit:  clampLimit(req.Limit, DefaultPipelineLimit, MaxProcessLimit),
			Enrich: req.scrape(),
		})
		if err != nil {
			return nil, err
		}
		return res, nil

	case "":
		return nil, fmt.Errorf("%w: action is required", app.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", app.ErrInvalidInput, req.Action)
	}
}

// StatusCode maps a pipeline error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, app.ErrUnknownRegion), errors.Is(err, app.ErrNoContentFound):
		return http.StatusNotFound
	case errors.Is(err, host.ErrInvalidHostType), errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, news.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
