package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports a failed job to the broker. Retryable codes fail the
// job with a bounded retry count; everything else is thrown as a BPMN error
// so the process model can route it.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandard(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	fields := map[string]interface{}{
		"jobKey":           job.GetKey(),
		"jobType":          job.GetType(),
		"errorCode":        string(stdErr.Code),
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"processInstance":  job.GetProcessInstanceKey(),
		"remainingRetries": job.GetRetries(),
	}
	for k, v := range stdErr.Metadata {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	h.logger.Error("Job failed", fields)

	if bpmnErr.Retries > 0 && job.GetRetries() > 0 {
		h.failJob(ctx, client, job, bpmnErr)
		return
	}
	h.throwError(ctx, client, job, bpmnErr)
}

// remainingRetries never exceeds what the broker still allows for the job.
func remainingRetries(job entities.Job, wanted int) int32 {
	left := int(job.GetRetries()) - 1
	if wanted > left {
		wanted = left
	}
	if wanted < 0 {
		wanted = 0
	}
	return int32(wanted)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(remainingRetries(job, bpmnErr.Retries)).
		ErrorMessage(bpmnErr.Message)

	var send func(context.Context) error
	if vars, ok := errorVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			send = func(ctx context.Context) error { _, err := withVars.Send(ctx); return err }
		}
	}
	if send == nil {
		send = func(ctx context.Context) error { _, err := cmd.Send(ctx); return err }
	}
	h.report(ctx, job, "fail", send)
}

func (h *ErrorHandler) throwError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.GetKey()).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	var send func(context.Context) error
	if vars, ok := errorVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			send = func(ctx context.Context) error { _, err := withVars.Send(ctx); return err }
		}
	}
	if send == nil {
		send = func(ctx context.Context) error { _, err := cmd.Send(ctx); return err }
	}
	h.report(ctx, job, "throw", send)
}

func errorVariables(bpmnErr *BPMNError) (string, bool) {
	payload, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(payload), true
}

func (h *ErrorHandler) report(ctx context.Context, job entities.Job, action string, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		h.logger.Warn("Job error report not delivered", map[string]interface{}{
			"jobKey": job.GetKey(),
			"action": action,
			"error":  err.Error(),
		})
	}
}
