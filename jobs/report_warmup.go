package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/finconsol/finconsol/internal/report"
)

const defaultWarmupMonths = 6

// ReportBuilder is the engine surface the warmup job drives.
type ReportBuilder interface {
	ProfitLoss(ctx context.Context, req report.Request) (*report.Report, error)
	BalanceSheet(ctx context.Context, req report.Request) (*report.Report, error)
}

// ReportWarmupJob pre-populates the report cache for the trailing months so
// the first dashboard hit after an upload is served warm.
type ReportWarmupJob struct {
	Builder ReportBuilder
	Cache   *report.Cache
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(builder ReportBuilder, cache *report.Cache, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{
		Builder: builder,
		Cache:   cache,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Builder == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.Statements) == 0 {
		payload.Statements = []string{"pl", "bs"}
	}
	if payload.Months <= 0 {
		payload.Months = defaultWarmupMonths
	}

	logger := j.logger().With(slog.Int("months", payload.Months))
	logger.Info("starting report warmup")

	now := j.now()
	from := now.AddDate(0, -(payload.Months - 1), 0)
	req := report.Request{
		FromMonth: strconv.Itoa(int(from.Month())),
		FromYear:  strconv.Itoa(from.Year()),
		ToMonth:   strconv.Itoa(int(now.Month())),
		ToYear:    strconv.Itoa(now.Year()),
		DataType:  report.DataTypeActual,
	}

	start := time.Now()
	for _, statement := range payload.Statements {
		if err := j.warmStatement(ctx, statement, req); err != nil {
			logger.Error("warm statement", slog.String("statement", statement), slog.Any("error", err))
			return err
		}
	}

	logger.Info("completed report warmup",
		slog.Int("statements", len(payload.Statements)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportWarmupJob) warmStatement(ctx context.Context, statement string, req report.Request) error {
	stmtCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	build := func(ctx context.Context) (*report.Report, error) {
		switch statement {
		case "pl":
			return j.Builder.ProfitLoss(ctx, req)
		case "bs":
			return j.Builder.BalanceSheet(ctx, req)
		default:
			return nil, fmt.Errorf("report warmup: unknown statement %q", statement)
		}
	}

	if j.Cache == nil {
		_, err := build(stmtCtx)
		return err
	}
	key, err := j.Cache.Key(stmtCtx, statement, req)
	if err != nil {
		return err
	}
	_, err = j.Cache.Fetch(stmtCtx, key, build)
	return err
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
