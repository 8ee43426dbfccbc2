package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
)

func userCreated(value string) *consumer.Message {
	return &consumer.Message{Topic: string(event.TopicUserCreated), Value: []byte(value)}
}

type WelcomeHandlerSuite struct {
	suite.Suite
	ctx       context.Context
	mailer    *fakeMailer
	publisher *capturePublisher
	handler   *WelcomeHandler
}

func TestWelcomeHandlerSuite(t *testing.T) {
	suite.Run(t, new(WelcomeHandlerSuite))
}

func (s *WelcomeHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.mailer = &fakeMailer{}
	s.publisher = &capturePublisher{failOn: map[event.Topic]error{}}
	s.handler = NewWelcomeHandler(s.mailer, s.publisher,
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func (s *WelcomeHandlerSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *WelcomeHandlerSuite) TestWelcome() {
	s.Run("emails the new user and fires an audit notice", func() {
		err := s.handler.Handle(s.ctx, userCreated(
			`{"userId":7,"username":"ada","userEmail":"ada@example.com"}`))
		s.Require().NoError(err)

		s.Require().Len(s.mailer.sent, 1)
		s.Equal("ada@example.com", s.mailer.sent[0].to)
		s.Equal("Welcome to Our Platform!", s.mailer.sent[0].subject)
		s.Contains(s.mailer.sent[0].body, "ada")

		notices := s.publisher.byTopic(event.TopicAuditLogged)
		s.Require().Len(notices, 1)
		notice := notices[0].(event.AuditLogged)
		s.Equal("user.created", notice.EventType)

		var audited map[string]any
		s.Require().NoError(json.Unmarshal(notice.Data, &audited))
		s.Equal(float64(7), audited["userId"])
		s.Equal("ada", audited["username"])
	})

	s.Run("skips the email but still audits when no address is present", func() {
		err := s.handler.Handle(s.ctx, userCreated(`{"userId":7,"username":"ada"}`))
		s.Require().NoError(err)

		s.Empty(s.mailer.sent)
		s.Len(s.publisher.byTopic(event.TopicAuditLogged), 1)
	})
}

func (s *WelcomeHandlerSuite) TestValidation() {
	s.Run("drops payloads without a user id", func() {
		err := s.handler.Handle(s.ctx, userCreated(`{"username":"ada"}`))
		s.Require().ErrorIs(err, event.ErrMissingFields)
		s.Empty(s.publisher.published)
	})

	s.Run("drops undecodable payloads", func() {
		err := s.handler.Handle(s.ctx, userCreated(`not json`))
		s.Require().ErrorIs(err, event.ErrMalformed)
	})
}

func (s *WelcomeHandlerSuite) TestSendFailure() {
	s.Run("a mailer failure surfaces and suppresses the audit notice", func() {
		s.mailer.err = errors.New("smtp timeout")

		err := s.handler.Handle(s.ctx, userCreated(
			`{"userId":7,"userEmail":"ada@example.com"}`))
		s.Require().Error(err)
		s.Empty(s.publisher.byTopic(event.TopicAuditLogged))
	})
}
