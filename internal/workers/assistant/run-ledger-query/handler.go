package runledgerquery

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"ledger-assistant/internal/assistant/gate"
	"ledger-assistant/internal/common/camunda"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/integrations/records"
	"ledger-assistant/internal/models"
)

const TaskType = "run-ledger-query"

// Ledger is the read side of the record store.
type Ledger interface {
	RunProfitLoss(ctx context.Context, eventName string) (*models.ProfitLossReport, error)
	RunVendorBalance(ctx context.Context, vendorName string) (*models.VendorBalanceReport, error)
	RunSummary(ctx context.Context) (*models.SummaryReport, error)
}

type Handler struct {
	config       *Config
	ledger       Ledger
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, ledger Ledger, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		ledger:       ledger,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewOrchestratorRejectedError("complete job", err))
		return
	}
	if _, err := camunda.ExecuteWithRetry(ctx, nil, "complete job", func(ctx context.Context) (*pb.CompleteJobResponse, error) {
		return cmd.Send(ctx)
	}); err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute runs one report. An unknown event or counterparty completes with
// Found=false and an operator-facing message rather than failing the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}

	draft := &models.QueryDraft{
		QueryType:        models.QueryType(strings.ToLower(strings.TrimSpace(input.QueryType))),
		EventName:        strings.TrimSpace(input.EventName),
		CounterpartyName: strings.TrimSpace(input.CounterpartyName),
	}
	switch draft.QueryType {
	case models.QueryProfit, models.QueryBalance, models.QueryGeneric:
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown query type %q", input.QueryType))
	}
	if missing := draft.MissingFields(); len(missing) > 0 {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("%s is required for a %s query", missing[0], draft.QueryType))
	}

	start := time.Now()
	data, err := h.run(ctx, draft)
	elapsed := time.Since(start).Milliseconds()

	if stderrors.Is(err, records.ErrEventNotFound) || stderrors.Is(err, records.ErrCounterpartyNotFound) {
		h.logger.Info("Ledger query found nothing", map[string]interface{}{
			"queryType": string(draft.QueryType),
			"error":     err.Error(),
		})
		return &Output{
			QueryType:          draft.QueryType,
			Message:            gate.FriendlyError(err),
			QueryExecutionTime: elapsed,
		}, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(string(draft.QueryType), err)
	}

	return &Output{
		QueryType:          draft.QueryType,
		Found:              true,
		Data:               data,
		Message:            describe(data),
		QueryExecutionTime: elapsed,
	}, nil
}

func (h *Handler) run(ctx context.Context, q *models.QueryDraft) (interface{}, error) {
	switch q.QueryType {
	case models.QueryProfit:
		return h.ledger.RunProfitLoss(ctx, q.EventName)
	case models.QueryBalance:
		return h.ledger.RunVendorBalance(ctx, q.CounterpartyName)
	default:
		return h.ledger.RunSummary(ctx)
	}
}

func describe(data interface{}) string {
	switch rep := data.(type) {
	case *models.ProfitLossReport:
		return fmt.Sprintf("%s: projected profit %s on %d tickets.", rep.EventName, rep.ProjectedProfit.StringFixed(2), rep.TotalQuantity)
	case *models.VendorBalanceReport:
		return fmt.Sprintf("%s: balance %s.", rep.VendorName, rep.Balance.StringFixed(2))
	case *models.SummaryReport:
		return fmt.Sprintf("%d purchases, %d orders, %d manual transactions.", rep.Purchases, rep.Orders, rep.ManualTransactions)
	}
	return ""
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	std := errors.AsStandard(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(std.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, std)
}
