package processutterance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"ledger-assistant/internal/assistant/clarify"
	"ledger-assistant/internal/common/camunda"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/models"
)

const TaskType = "process-utterance"

// Turner runs one conversational turn.
type Turner interface {
	Handle(ctx context.Context, convID string, state *models.ClarificationState, in clarify.Turn, dirs models.Directories) (clarify.Reply, *models.ClarificationState, error)
}

type StateStore interface {
	Get(ctx context.Context, convID string) (*models.ClarificationState, error)
	Save(ctx context.Context, convID string, st *models.ClarificationState) error
}

type Transcript interface {
	Append(ctx context.Context, convID string, msgs ...models.Message) error
	AppendBoundary(ctx context.Context, convID string) error
	Tile(ctx context.Context, convID string) ([]models.Message, error)
}

type Directories interface {
	Snapshot(ctx context.Context) (models.Directories, error)
	Invalidate(ctx context.Context) error
}

// JobObserver receives per-job and per-turn telemetry.
type JobObserver interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
	RecordTurn(ctx context.Context, stage string, tileEnded bool)
}

type Dependencies struct {
	Machine     Turner
	States      StateStore
	Transcript  Transcript
	Directories Directories
	Observer    JobObserver
}

type Handler struct {
	config       *Config
	deps         Dependencies
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if deps.Machine == nil || deps.States == nil || deps.Directories == nil {
		return nil, fmt.Errorf("%s: machine, state store and directories are required", TaskType)
	}

	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		deps:         deps,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
		now:          time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)), start)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if h.deps.Observer != nil {
		h.deps.Observer.RecordJobProcessed(ctx, TaskType, "completed")
		h.deps.Observer.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
	}
}

// Execute runs one turn end to end: load state and directories, run the
// machine, persist the next state and the transcript.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	utterance := strings.TrimSpace(input.Utterance)
	if utterance == "" && input.Action == nil {
		return nil, errors.NewUtteranceInvalidError("utterance or action is required")
	}

	convID := input.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	state, err := h.deps.States.Get(ctx, convID)
	if err != nil {
		return nil, errors.NewStateStoreFailedError(convID, err)
	}

	dirs, err := h.deps.Directories.Snapshot(ctx)
	if err != nil {
		return nil, errors.NewDirectoryLoadFailedError("vendor and bank", err)
	}

	reply, next, err := h.deps.Machine.Handle(ctx, convID, state, clarify.Turn{Utterance: utterance, Action: input.Action}, dirs)
	if err != nil {
		return nil, errors.NewCatalogSearchFailedError(utterance, err).
			WithMetadata("conversationId", convID)
	}

	if err := h.deps.States.Save(ctx, convID, next); err != nil {
		return nil, errors.NewStateStoreFailedError(convID, err)
	}

	tileLength := h.appendTranscript(ctx, convID, input, utterance, reply, next)

	if reply.Mutated {
		if err := h.deps.Directories.Invalidate(ctx); err != nil {
			h.logger.Warn("Directory cache invalidation failed", map[string]interface{}{
				"conversationId": convID,
				"error":          err.Error(),
			})
		}
	}

	metrics.ObserveTurn(time.Since(start))
	if h.deps.Observer != nil {
		h.deps.Observer.RecordTurn(ctx, string(reply.Stage), reply.TileEnded)
	}

	buttons := reply.Buttons
	if buttons == nil {
		buttons = []models.ActionButton{}
	}
	errs := reply.Errors
	if errs == nil {
		errs = []string{}
	}
	return &Output{
		ConversationID: convID,
		Reply:          reply.Message,
		Stage:          reply.Stage,
		Buttons:        buttons,
		Intent:         reply.Intent,
		Errors:         errs,
		TileEnded:      reply.TileEnded,
		TileLength:     tileLength,
		QueryResult:    reply.QueryResult,
	}, nil
}

// appendTranscript records both sides of the turn and returns how many
// messages the turn's tile holds, read back before any closing boundary.
// History is best effort and never fails the turn; a failed read reports 0.
func (h *Handler) appendTranscript(ctx context.Context, convID string, input *Input, utterance string, reply clarify.Reply, next *models.ClarificationState) int {
	if h.deps.Transcript == nil {
		return 0
	}
	now := h.now().UTC()

	content := utterance
	if content == "" && input.Action != nil {
		content = "[" + string(input.Action.Type) + "]"
	}
	msgs := []models.Message{
		{Role: models.RoleUser, Content: content, CreatedAt: now},
		{Role: models.RoleAssistant, Content: reply.Message, Intent: reply.Intent, State: next, Buttons: reply.Buttons, CreatedAt: now},
	}
	if err := h.deps.Transcript.Append(ctx, convID, msgs...); err != nil {
		h.logger.Warn("Transcript append failed", map[string]interface{}{
			"conversationId": convID,
			"error":          errors.NewTranscriptStoreFailedError(convID, err).Error(),
		})
		return 0
	}

	tileLength := 0
	if tile, err := h.deps.Transcript.Tile(ctx, convID); err != nil {
		h.logger.Warn("Transcript tile read failed", map[string]interface{}{
			"conversationId": convID,
			"error":          err.Error(),
		})
	} else {
		tileLength = len(tile)
	}

	if reply.TileEnded {
		if err := h.deps.Transcript.AppendBoundary(ctx, convID); err != nil {
			h.logger.Warn("Tile boundary append failed", map[string]interface{}{
				"conversationId": convID,
				"error":          err.Error(),
			})
		}
	}
	return tileLength
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return errors.NewOrchestratorRejectedError("complete job", err)
	}

	_, err = camunda.ExecuteWithRetry(ctx, nil, "complete job", func(ctx context.Context) (*pb.CompleteJobResponse, error) {
		return cmd.Send(ctx)
	})
	if err != nil {
		return err
	}

	h.logger.Info("Job completed", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"stage":     string(output.Stage),
		"tileEnded": output.TileEnded,
	})
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	std := errors.AsStandard(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(std.Code)).Inc()
	if h.deps.Observer != nil {
		h.deps.Observer.RecordJobProcessed(ctx, TaskType, "failed")
		h.deps.Observer.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	}
	h.errorHandler.HandleJobError(ctx, client, job, std)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
