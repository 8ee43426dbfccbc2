package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventflow/internal/audit"
	"eventflow/internal/audit/store/memory"
	"eventflow/internal/event"
)

// capturePublisher records successful publishes and can be told to fail
// per topic.
type capturePublisher struct {
	published []event.Payload
	failOn    map[event.Topic]error
}

func (p *capturePublisher) Publish(_ context.Context, payload event.Payload) error {
	if err := p.failOn[payload.EventTopic()]; err != nil {
		return err
	}
	p.published = append(p.published, payload)
	return nil
}

func (p *capturePublisher) byTopic(topic event.Topic) []event.Payload {
	var out []event.Payload
	for _, payload := range p.published {
		if payload.EventTopic() == topic {
			out = append(out, payload)
		}
	}
	return out
}

type RecorderSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	publisher *capturePublisher
	recorder  *audit.Recorder
	clock     time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.publisher = &capturePublisher{failOn: map[event.Topic]error{}}
	s.clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.recorder = audit.NewRecorder(
		s.store,
		s.publisher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		audit.WithClock(func() time.Time { return s.clock }),
	)
}

func (s *RecorderSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *RecorderSuite) TestRecord() {
	s.Run("persists the record and publishes a completion notice", func() {
		data := json.RawMessage(`{"userId":7}`)

		rec, err := s.recorder.Record(s.ctx, "user.created", data)
		s.Require().NoError(err)
		s.Equal("user.created", rec.EventType)
		s.Equal(s.clock, rec.CreatedAt)

		stored := s.store.All()
		s.Require().Len(stored, 1)
		s.Equal(rec.ID, stored[0].ID)

		notices := s.publisher.byTopic(event.TopicAuditLogged)
		s.Require().Len(notices, 1)
		notice := notices[0].(event.AuditLogged)
		s.Equal(rec.ID.String(), notice.ID)
		s.Equal("user.created", notice.EventType)
		s.JSONEq(string(data), string(notice.Data))
	})

	s.Run("never republishes a completion notice for audit.logged itself", func() {
		_, err := s.recorder.Record(s.ctx, "audit.logged", json.RawMessage(`{"eventType":"user.created"}`))
		s.Require().NoError(err)

		s.Len(s.store.All(), 1)
		s.Empty(s.publisher.byTopic(event.TopicAuditLogged))
		s.Empty(s.publisher.byTopic(event.TopicAuditFailed))
	})
}

func (s *RecorderSuite) TestPersistenceFailure() {
	s.Run("compensates once and returns the store error", func() {
		s.store.FailAppend = errors.New("connection refused")

		_, err := s.recorder.Record(s.ctx, "user.created", json.RawMessage(`{"userId":7}`))
		s.Require().Error(err)
		s.ErrorContains(err, "connection refused")

		s.Empty(s.publisher.byTopic(event.TopicAuditLogged))
		failures := s.publisher.byTopic(event.TopicAuditFailed)
		s.Require().Len(failures, 1)
		failed := failures[0].(event.AuditFailed)
		s.Equal("user.created", failed.EventType)
		s.Contains(failed.Error, "connection refused")
	})

	s.Run("compensation publish failure does not mask the store error", func() {
		s.store.FailAppend = errors.New("connection refused")
		s.publisher.failOn[event.TopicAuditFailed] = errors.New("broker down")

		_, err := s.recorder.Record(s.ctx, "user.created", json.RawMessage(`{"userId":7}`))
		s.Require().Error(err)
		s.ErrorContains(err, "connection refused")
		s.NotContains(err.Error(), "broker down")
	})
}

func (s *RecorderSuite) TestFanOutFailure() {
	s.Run("record stays durable, compensation fires, error is returned", func() {
		s.publisher.failOn[event.TopicAuditLogged] = errors.New("broker down")

		rec, err := s.recorder.Record(s.ctx, "user.created", json.RawMessage(`{"userId":7}`))
		s.Require().Error(err)
		s.ErrorContains(err, "broker down")
		s.NotEqual(uuid.Nil, rec.ID)

		stored := s.store.All()
		s.Require().Len(stored, 1)
		s.Equal(rec.ID, stored[0].ID)

		failures := s.publisher.byTopic(event.TopicAuditFailed)
		s.Require().Len(failures, 1)
	})
}

func (s *RecorderSuite) TestReplicate() {
	s.Run("persists without any follow-on publish", func() {
		rec, err := s.recorder.Replicate(s.ctx, "user.created", json.RawMessage(`{"userId":7}`))
		s.Require().NoError(err)
		s.Equal("user.created", rec.EventType)

		s.Len(s.store.All(), 1)
		s.Empty(s.publisher.published)
	})

	s.Run("shares the compensation path with Record", func() {
		s.store.FailAppend = errors.New("disk full")

		_, err := s.recorder.Replicate(s.ctx, "user.created", json.RawMessage(`{"userId":7}`))
		s.Require().Error(err)

		failures := s.publisher.byTopic(event.TopicAuditFailed)
		s.Require().Len(failures, 1)
		s.Contains(failures[0].(event.AuditFailed).Error, "disk full")
	})
}
