package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/badrinath-dash/apigee-audit-connector/internal/aws"
)

// SQSSink delivers events to an SQS queue, one message per record. Routing
// metadata travels as message attributes so downstream consumers can fan
// events into the right index without decoding the body.
type SQSSink struct {
	SQS      aws.SQSAPI
	QueueURL string
}

// NewSQSSink returns a sink bound to a queue URL.
func NewSQSSink(sqsClient aws.SQSAPI, queueURL string) *SQSSink {
	return &SQSSink{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Emit sends one record. The event_time attribute is set only for
// timestamped records, in epoch seconds.
func (s *SQSSink) Emit(ctx context.Context, ev Event) error {
	body := string(ev.Payload)
	input := &sqs.SendMessageInput{
		QueueUrl:    &s.QueueURL,
		MessageBody: &body,
	}

	attrs := map[string]string{
		"index":      ev.Index,
		"sourcetype": ev.Sourcetype,
		"input":      ev.InputName,
	}
	if ev.EventTimeSec > 0 {
		attrs["event_time"] = strconv.FormatInt(ev.EventTimeSec, 10)
	}

	msgAttrs := map[string]sqstypes.MessageAttributeValue{}
	for k, v := range attrs {
		if v == "" {
			continue
		}
		v := v
		msgAttrs[k] = sqstypes.MessageAttributeValue{
			DataType:    awsString("String"),
			StringValue: &v,
		}
	}
	input.MessageAttributes = msgAttrs

	_, err := s.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
