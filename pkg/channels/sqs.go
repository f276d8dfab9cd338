package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsClient defines the minimal subset of the SQS client used by sqsChannel.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsChannel enqueues envelopes on an SQS queue.
type sqsChannel struct {
	base
	queueURL string
	client   sqsClient
}

func newSQSChannel(ctx context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("channel %q missing sqs configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.AccessKeyID, cfg.SQS.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	return &sqsChannel{
		base:     newBase(cfg, TypeSQS, deps.Log),
		queueURL: cfg.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
	}, nil
}

func (s *sqsChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	addr, ok := s.address(receiverKey)
	if !ok {
		return false
	}
	if err := s.enqueue(ctx, NewEnvelope(s.id, addr, text)); err != nil {
		return s.failed("send", err)
	}
	return s.delivered("send", receiverKey)
}

func (s *sqsChannel) SendToAll(ctx context.Context, text string) bool {
	if err := s.enqueue(ctx, NewEnvelope(s.id, "", text)); err != nil {
		return s.failed("broadcast", err)
	}
	return s.delivered("broadcast", "")
}

func (s *sqsChannel) enqueue(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	attrs := map[string]types.MessageAttributeValue{
		"kind": {
			DataType:    aws.String("String"),
			StringValue: aws.String(envelopeKind(env)),
		},
	}
	if env.Receiver != "" {
		attrs["receiver"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(env.Receiver),
		}
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: attrs,
	}
	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message to sqs: %w", err)
	}
	return nil
}
