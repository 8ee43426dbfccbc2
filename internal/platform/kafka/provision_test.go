package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"

	"eventflow/internal/event"
)

// fakeAdmin stands in for the broker admin API. raceOn simulates another
// service creating the topic between our list and create calls.
type fakeAdmin struct {
	existing  map[string]bool
	raceOn    map[string]bool
	listErr   error
	createErr error
	created   []string
}

func (a *fakeAdmin) ListTopics(_ context.Context, _ ...string) (kadm.TopicDetails, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	details := kadm.TopicDetails{}
	for t := range a.existing {
		details[t] = kadm.TopicDetail{Topic: t}
	}
	return details, nil
}

func (a *fakeAdmin) CreateTopics(_ context.Context, _ int32, _ int16, _ map[string]*string, topics ...string) (kadm.CreateTopicResponses, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	resps := kadm.CreateTopicResponses{}
	for _, t := range topics {
		resp := kadm.CreateTopicResponse{Topic: t}
		if a.raceOn[t] {
			resp.Err = kerr.TopicAlreadyExists
		} else {
			a.existing[t] = true
			a.created = append(a.created, t)
		}
		resps[t] = resp
	}
	return resps, nil
}

type ProvisionSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func TestProvisionSuite(t *testing.T) {
	suite.Run(t, new(ProvisionSuite))
}

func (s *ProvisionSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ProvisionSuite) TestEnsureTopics() {
	s.Run("creates only the missing topics", func() {
		adm := &fakeAdmin{existing: map[string]bool{"user.created": true}}

		err := EnsureTopics(s.ctx, adm, s.logger, []string{"user.created", "audit.logged"})
		s.Require().NoError(err)
		s.Equal([]string{"audit.logged"}, adm.created)
	})

	s.Run("is idempotent", func() {
		adm := &fakeAdmin{existing: map[string]bool{}}
		topics := event.TopicNames()

		s.Require().NoError(EnsureTopics(s.ctx, adm, s.logger, topics))
		firstRun := len(adm.created)
		s.Equal(len(topics), firstRun)

		s.Require().NoError(EnsureTopics(s.ctx, adm, s.logger, topics))
		s.Equal(firstRun, len(adm.created))
	})

	s.Run("tolerates losing the creation race", func() {
		adm := &fakeAdmin{
			existing: map[string]bool{},
			raceOn:   map[string]bool{"audit.logged": true},
		}

		err := EnsureTopics(s.ctx, adm, s.logger, []string{"audit.logged", "audit.failed"})
		s.Require().NoError(err)
		s.Equal([]string{"audit.failed"}, adm.created)
	})

	s.Run("surfaces list failures", func() {
		adm := &fakeAdmin{listErr: errors.New("broker unreachable")}

		err := EnsureTopics(s.ctx, adm, s.logger, []string{"user.created"})
		s.Require().ErrorContains(err, "broker unreachable")
	})

	s.Run("surfaces create failures", func() {
		adm := &fakeAdmin{
			existing:  map[string]bool{},
			createErr: errors.New("not authorized"),
		}

		err := EnsureTopics(s.ctx, adm, s.logger, []string{"user.created"})
		s.Require().ErrorContains(err, "not authorized")
	})
}
