package resolvefixture

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
	"github.com/google/uuid"

	"ledger-assistant/internal/assistant/resolver"
	"ledger-assistant/internal/common/camunda"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/models"
)

const TaskType = "resolve-fixture"

type FixtureLookup interface {
	Resolve(ctx context.Context, key, phrase string) ([]models.Fixture, error)
}

type Handler struct {
	config       *Config
	fixtures     FixtureLookup
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, fixtures FixtureLookup, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if fixtures == nil {
		return nil, fmt.Errorf("%s: fixture lookup is required", TaskType)
	}

	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		fixtures:     fixtures,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

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

// Execute searches the catalog. With AutoSelect the soonest fixture is
// returned as Selected and as the only candidate.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	phrase := strings.TrimSpace(input.Phrase)
	if phrase == "" {
		return nil, errors.NewInvalidInputError("phrase is required")
	}

	key := "job:" + uuid.NewString()
	if input.ConversationID != "" {
		key = input.ConversationID + ":event"
	}

	fixtures, err := h.fixtures.Resolve(ctx, key, phrase)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewCatalogSearchTimeoutError(phrase)
		}
		return nil, errors.NewCatalogSearchFailedError(phrase, err)
	}
	if input.AutoSelect && len(fixtures) > 1 {
		fixtures = fixtures[:1]
	}

	out := &Output{Candidates: resolver.ToCandidates(fixtures)}
	if input.AutoSelect && len(out.Candidates) == 1 {
		selected := out.Candidates[0]
		out.Selected = &selected
	}

	h.logger.Info("Fixture candidates resolved", map[string]interface{}{
		"phrase":     phrase,
		"candidates": len(out.Candidates),
		"autoSelect": input.AutoSelect,
	})
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	std := errors.AsStandard(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(std.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, std)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
