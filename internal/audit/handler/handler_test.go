package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eventflow/internal/audit"
)

type fakeRecorder struct {
	lastEventType string
	lastData      json.RawMessage
	err           error
}

func (r *fakeRecorder) Record(_ context.Context, eventType string, data json.RawMessage) (audit.Record, error) {
	if r.err != nil {
		return audit.Record{}, r.err
	}
	r.lastEventType = eventType
	r.lastData = data
	return audit.Record{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

type IngressSuite struct {
	suite.Suite
	recorder *fakeRecorder
	router   chi.Router
}

func TestIngressSuite(t *testing.T) {
	suite.Run(t, new(IngressSuite))
}

func (s *IngressSuite) SetupTest() {
	s.recorder = &fakeRecorder{}
	s.router = chi.NewRouter()
	New(s.recorder, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *IngressSuite) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *IngressSuite) TestLogAudit() {
	s.Run("creates an audit record from a valid submission", func() {
		rec := s.post(`{"eventType":"user.created","data":{"userId":7}}`)
		s.Require().Equal(http.StatusCreated, rec.Code)

		s.Equal("user.created", s.recorder.lastEventType)
		s.JSONEq(`{"userId":7}`, string(s.recorder.lastData))

		var resp struct {
			Message string       `json:"message"`
			Log     audit.Record `json:"log"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("audit log created", resp.Message)
		s.Equal("user.created", resp.Log.EventType)
		s.NotEqual(uuid.Nil, resp.Log.ID)
	})

	s.Run("rejects an unparsable body", func() {
		rec := s.post(`not json`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects a missing event type", func() {
		rec := s.post(`{"data":{"userId":7}}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects missing or null data", func() {
		rec := s.post(`{"eventType":"user.created"}`)
		s.Equal(http.StatusBadRequest, rec.Code)

		rec = s.post(`{"eventType":"user.created","data":null}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("maps recorder failures to a server error", func() {
		s.recorder.err = errors.New("store unavailable")

		rec := s.post(`{"eventType":"user.created","data":{"userId":7}}`)
		s.Equal(http.StatusInternalServerError, rec.Code)

		var resp map[string]string
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("failed to process audit log", resp["error"])
	})
}
