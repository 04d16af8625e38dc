package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/nagrik-sahayak/internal/app/bootstrap"
	"github.com/wolfman30/nagrik-sahayak/internal/complaints"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/users"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

func TestSetupIntakeMetricsExposesMetrics(t *testing.T) {
	handler, m := setupIntakeMetrics()
	require.NotNil(t, handler)
	require.NotNil(t, m)

	m.ObserveVerdict("Accepted", "Pothole")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "nagrik_intake_image_verdict_total")
}

func TestNeedsAWS(t *testing.T) {
	assert.False(t, needsAWS(&appconfig.Config{VisionProvider: "gemini", TextProvider: "openai", EmailProvider: "sendgrid"}))
	assert.True(t, needsAWS(&appconfig.Config{TextProvider: "bedrock"}))
	assert.True(t, needsAWS(&appconfig.Config{EmailProvider: "ses"}))
	assert.True(t, needsAWS(&appconfig.Config{EventSink: "sqs"}))
	assert.True(t, needsAWS(&appconfig.Config{EvidenceBucket: "evidence"}))
}

func TestBuildArchiveDisabledWithoutBucket(t *testing.T) {
	assert.Nil(t, buildArchive(nil, &appconfig.Config{EvidenceBucket: "evidence"}, logging.New("error")))
}

func TestBuildTokenIssuer(t *testing.T) {
	logger := logging.New("error")

	_, err := buildTokenIssuer(&appconfig.Config{Env: "production"}, logger)
	assert.Error(t, err)

	issuer, err := buildTokenIssuer(&appconfig.Config{Env: "development"}, logger)
	require.NoError(t, err)
	token, err := issuer.Issue("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestReadyCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	storage := &bootstrap.Storage{
		Users:      users.NewInMemoryRepository(),
		Complaints: complaints.NewInMemoryRepository(),
	}
	check := readyCheck(storage, client)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	assert.NoError(t, check(req))

	mr.Close()
	assert.ErrorContains(t, check(req), "redis")
}
