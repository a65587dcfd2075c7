package classifyutterance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"ledger-assistant/internal/assistant/normalize"
	"ledger-assistant/internal/common/camunda"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/models"
)

const TaskType = "classify-utterance"

type Classifier interface {
	Classify(text string) models.Intent
}

type Handler struct {
	config       *Config
	classifier   Classifier
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, cls Classifier, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		classifier:   cls,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
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

	output, err := h.Execute(&input)
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
}

// Execute classifies without touching conversation state. Actionable is
// false for greetings and unknown text.
func (h *Handler) Execute(input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.Utterance) == "" {
		return nil, errors.NewUtteranceInvalidError("utterance is required")
	}

	intent := h.classifier.Classify(input.Utterance)
	missing := intent.MissingFields
	if missing == nil {
		missing = []models.Field{}
	}
	metrics.IntentsClassified.WithLabelValues(string(intent.Kind)).Inc()

	h.logger.Info("Utterance classified", map[string]interface{}{
		"intent":     string(intent.Kind),
		"confidence": intent.Confidence,
		"missing":    len(missing),
	})

	return &Output{
		Intent:        intent,
		Normalized:    normalize.Normalize(input.Utterance).Normalized,
		MissingFields: missing,
		Actionable:    intent.Kind != models.IntentUnknown && intent.Kind != models.IntentGreeting,
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	std := errors.AsStandard(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(std.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, std)
}
