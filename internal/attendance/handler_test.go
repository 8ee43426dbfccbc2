package attendance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
)

type capturePublisher struct {
	published []event.Payload
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, payload event.Payload) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, payload)
	return nil
}

func registration(value string) *consumer.Message {
	return &consumer.Message{Topic: string(event.TopicRegistrationCreated), Value: []byte(value)}
}

type AttendanceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *MemoryStore
	publisher *capturePublisher
	handler   *Handler
}

func TestAttendanceSuite(t *testing.T) {
	suite.Run(t, new(AttendanceSuite))
}

func (s *AttendanceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.publisher = &capturePublisher{}
	s.handler = NewHandler(s.store, s.publisher, "event-service",
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *AttendanceSuite) TestCounting() {
	s.Run("counts the first delivery and republishes the total", func() {
		err := s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":7}`))
		s.Require().NoError(err)

		s.Require().Len(s.publisher.published, 1)
		updated := s.publisher.published[0].(event.EventUpdated)
		s.Equal("E1", updated.EventID)
		s.Equal(int64(1), updated.UpdatedFields["registered"])
		s.Equal("event-service", updated.UpdatedBy)
	})

	s.Run("distinct registrants keep incrementing", func() {
		s.Require().NoError(s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":7}`)))
		s.Require().NoError(s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":8}`)))

		s.Require().Len(s.publisher.published, 2)
		updated := s.publisher.published[1].(event.EventUpdated)
		s.Equal(int64(2), updated.UpdatedFields["registered"])
	})

	s.Run("counts are scoped per event", func() {
		s.Require().NoError(s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":7}`)))
		s.Require().NoError(s.handler.Handle(s.ctx, registration(`{"eventId":"E2","userId":7}`)))

		total, err := s.store.Count(s.ctx, "E2")
		s.Require().NoError(err)
		s.Equal(int64(1), total)
	})
}

func (s *AttendanceSuite) TestRedelivery() {
	s.Run("a redelivered registration neither recounts nor republishes", func() {
		s.Require().NoError(s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":7}`)))
		s.Require().NoError(s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":7}`)))

		total, err := s.store.Count(s.ctx, "E1")
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.Len(s.publisher.published, 1)
	})
}

func (s *AttendanceSuite) TestValidation() {
	s.Run("drops payloads missing the registration core", func() {
		err := s.handler.Handle(s.ctx, registration(`{"eventId":"E1"}`))
		s.Require().ErrorIs(err, event.ErrMissingFields)

		err = s.handler.Handle(s.ctx, registration(`{"userId":7}`))
		s.Require().ErrorIs(err, event.ErrMissingFields)
		s.Empty(s.publisher.published)
	})

	s.Run("drops undecodable payloads", func() {
		err := s.handler.Handle(s.ctx, registration(`not json`))
		s.Require().ErrorIs(err, event.ErrMalformed)
	})
}

func (s *AttendanceSuite) TestPublishFailure() {
	s.Run("a republish failure surfaces so the loop can log it", func() {
		s.publisher.err = errors.New("broker down")

		err := s.handler.Handle(s.ctx, registration(`{"eventId":"E1","userId":7}`))
		s.Require().Error(err)

		// The count already moved; redelivery will not move it again.
		total, countErr := s.store.Count(s.ctx, "E1")
		s.Require().NoError(countErr)
		s.Equal(int64(1), total)
	})
}
