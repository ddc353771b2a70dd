package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "trips@wayloft.example",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "trips@wayloft.example",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Wayloft Holidays" {
		t.Errorf("expected default from name 'Wayloft Holidays', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "advisor@wayloft.example",
		Subject: "Test",
		Body:    "Test body",
	})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "advisor@wayloft.example",
		ReplyTo: "john@x.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})
	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_SetsReplyToAndBodies(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "trips@wayloft.example"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "advisor@wayloft.example",
		ReplyTo: "john@x.com",
		Subject: "New Wayloft Trip Request — Morocco",
		Body:    "plain",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Wayloft Holidays <trips@wayloft.example>" {
		t.Errorf("unexpected from address %q", got)
	}
	if len(api.input.ReplyToAddresses) != 1 || api.input.ReplyToAddresses[0] != "john@x.com" {
		t.Errorf("expected reply-to john@x.com, got %v", api.input.ReplyToAddresses)
	}
	if got := aws.ToString(api.input.Content.Simple.Body.Text.Data); got != "plain" {
		t.Errorf("unexpected text body %q", got)
	}
	if api.input.Content.Simple.Body.Html != nil {
		t.Error("expected no html body")
	}
}

func TestSESSender_WrapsErrors(t *testing.T) {
	boom := errors.New("throttled")
	sender := NewSESSender(&fakeSES{err: boom}, SESConfig{FromEmail: "trips@wayloft.example"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "advisor@wayloft.example", Subject: "s"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{}, nil) != nil {
		t.Error("expected nil sender without client")
	}
}
