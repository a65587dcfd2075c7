// Package notify announces completed ledger mutations on an SNS topic.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"ledger-assistant/internal/assistant/gate"
	"ledger-assistant/internal/common/logger"
)

var ErrPublishFailed = errors.New("NOTIFICATION_PUBLISH_FAILED")

// Publisher is satisfied by the shared SNS client.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type SNSPublisher struct {
	client   Publisher
	topicARN string
	logger   logger.Logger
}

func NewSNSPublisher(client Publisher, topicARN string, log logger.Logger) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

func (p *SNSPublisher) Publish(ctx context.Context, n gate.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPublishFailed, err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String("Ledger " + string(n.Kind) + " recorded"),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Kind)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	p.logger.Debug("Notification published", map[string]interface{}{
		"recordId":  n.RecordID,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}
