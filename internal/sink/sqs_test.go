package sink

import (
	"context"
	"errors"
	"testing"

	dynsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQS struct {
	sent    []*dynsqs.SendMessageInput
	sendErr error
}

func (m *mockSQS) SendMessage(ctx context.Context, params *dynsqs.SendMessageInput, optFns ...func(*dynsqs.Options)) (*dynsqs.SendMessageOutput, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, params)
	return &dynsqs.SendMessageOutput{}, nil
}

func TestEmit_TimestampedRecord(t *testing.T) {
	mock := &mockSQS{}
	s := NewSQSSink(mock, "https://sqs.example/q")

	err := s.Emit(context.Background(), Event{
		Payload:      []byte(`{"operation":"UPDATE"}`),
		Index:        "apigee",
		Sourcetype:   "apigee:audit",
		InputName:    "prod",
		EventTimeSec: 1705314600,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.sent))
	}

	msg := mock.sent[0]
	if *msg.MessageBody != `{"operation":"UPDATE"}` {
		t.Fatalf("body mismatch: %s", *msg.MessageBody)
	}
	et, ok := msg.MessageAttributes["event_time"]
	if !ok || *et.StringValue != "1705314600" {
		t.Fatalf("event_time attribute missing or wrong: %+v", msg.MessageAttributes)
	}
	if st := msg.MessageAttributes["sourcetype"]; *st.StringValue != "apigee:audit" {
		t.Fatalf("sourcetype attribute wrong: %+v", st)
	}
}

func TestEmit_UntimestampedRecordOmitsEventTime(t *testing.T) {
	mock := &mockSQS{}
	s := NewSQSSink(mock, "https://sqs.example/q")

	err := s.Emit(context.Background(), Event{
		Payload:    []byte(`{}`),
		Index:      "apigee",
		Sourcetype: "apigee:audit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := mock.sent[0].MessageAttributes["event_time"]; ok {
		t.Fatal("event_time must be omitted for un-timestamped records")
	}
}

func TestEmit_SendError(t *testing.T) {
	mock := &mockSQS{sendErr: errors.New("queue unavailable")}
	s := NewSQSSink(mock, "https://sqs.example/q")

	if err := s.Emit(context.Background(), Event{Payload: []byte(`{}`)}); err == nil {
		t.Fatal("expected error")
	}
}
