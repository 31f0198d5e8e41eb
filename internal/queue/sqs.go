package queue

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSBus implements Bus on AWS SQS. Visibility timeout and redelivery are
// native queue behavior; the dead-letter queue is expected to be attached
// via the queue's redrive policy with maxReceiveCount matching
// EVENT_BUS_MAX_RECEIVES.
type SQSBus struct {
	client            *sqs.Client
	queueURL          string
	visibilityTimeout time.Duration
}

// NewSQSBus builds the SQS bus. Static credentials from AWS_ACCESS_KEY_ID /
// AWS_SECRET_ACCESS_KEY take precedence when set; otherwise the default
// credential chain applies.
func NewSQSBus(ctx context.Context, queueURL string, visibilityTimeout time.Duration) (*SQSBus, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, os.Getenv("AWS_SECRET_ACCESS_KEY"), ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if visibilityTimeout <= 0 {
		visibilityTimeout = 30 * time.Second
	}

	return &SQSBus{
		client:            sqs.NewFromConfig(awsCfg),
		queueURL:          queueURL,
		visibilityTimeout: visibilityTimeout,
	}, nil
}

func (b *SQSBus) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return err
	}

	return publishWithRetry(ctx, func(ctx context.Context) error {
		out, err := b.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(b.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"EventType": {
					DataType:    aws.String("String"),
					StringValue: aws.String(event.Type),
				},
			},
		})
		if err != nil {
			return fmt.Errorf("sqs send: %w", err)
		}
		log.Printf("[SQSBus] Publish OK: type=%s post=%d msgID=%s", event.Type, event.PostID, aws.ToString(out.MessageId))
		return nil
	})
}

func (b *SQSBus) Receive(ctx context.Context, maxCount int, wait time.Duration) ([]Message, error) {
	if maxCount > 10 {
		maxCount = 10 // SQS batch ceiling
	}

	out, err := b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(b.queueURL),
		MaxNumberOfMessages:   int32(maxCount),
		WaitTimeSeconds:       int32(wait / time.Second),
		VisibilityTimeout:     int32(b.visibilityTimeout / time.Second),
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			Handle: aws.ToString(m.ReceiptHandle),
			Body:   []byte(aws.ToString(m.Body)),
		})
	}
	return messages, nil
}

func (b *SQSBus) Ack(ctx context.Context, handle string) error {
	_, err := b.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(b.queueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}

func (b *SQSBus) Ping(ctx context.Context) error {
	_, err := b.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(b.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return fmt.Errorf("sqs get attributes: %w", err)
	}
	return nil
}

func (b *SQSBus) Close() error {
	return nil
}
