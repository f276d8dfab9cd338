package channels

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient defines the minimal subset of the SNS client used by snsChannel.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsChannel publishes envelopes to an SNS topic.
type snsChannel struct {
	base
	topicARN string
	client   snsClient
}

func newSNSChannel(ctx context.Context, cfg ChannelConfig, deps Deps) (Channel, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("channel %q missing sns configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.AccessKeyID, cfg.SNS.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	return &snsChannel{
		base:     newBase(cfg, TypeSNS, deps.Log),
		topicARN: cfg.SNS.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
	}, nil
}

func (s *snsChannel) SendToOne(ctx context.Context, text, receiverKey string) bool {
	addr, ok := s.address(receiverKey)
	if !ok {
		return false
	}
	if err := s.publish(ctx, NewEnvelope(s.id, addr, text)); err != nil {
		return s.failed("send", err)
	}
	return s.delivered("send", receiverKey)
}

func (s *snsChannel) SendToAll(ctx context.Context, text string) bool {
	if err := s.publish(ctx, NewEnvelope(s.id, "", text)); err != nil {
		return s.failed("broadcast", err)
	}
	return s.delivered("broadcast", "")
}

func (s *snsChannel) publish(ctx context.Context, env Envelope) error {
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

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attrs,
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish to sns: %w", err)
	}
	return nil
}
