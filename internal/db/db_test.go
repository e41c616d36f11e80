// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
// In short mode no container is started and every test skips itself.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)
	os.Exit(code)
}

// testStore wipes the data tables and returns the shared client.
func testStore(t *testing.T) (*Client, context.Context) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, testDB.WipeData(ctx))
	return testDB, ctx
}

func makeSession(state models.SessionState) *models.Session {
	return &models.Session{
		ID:    uuid.NewString(),
		State: state,
		Content: models.ContentDescriptor{
			Type:     models.ContentDirectText,
			Body:     "NVDA raised guidance.",
			Metadata: map[string]string{models.MetaKeySymbol: "NVDA"},
		},
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestSessionCRUD(t *testing.T) {
	client, ctx := testStore(t)

	owner := "trader-1"
	session := makeSession(models.StateInitialized)
	session.OwnerID = &owner
	require.NoError(t, client.CreateSession(ctx, session))

	got, err := client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, models.StateInitialized, got.State)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, owner, *got.OwnerID)
	assert.Equal(t, "NVDA", got.Content.Metadata[models.MetaKeySymbol])
	assert.Nil(t, got.Outcome)

	// Terminal update writes outcome and completion together.
	rec := "Buy"
	score := 0.7
	completed := time.Now().UTC().Truncate(time.Millisecond)
	got.State = models.StateCompleted
	got.CompletedAt = &completed
	got.Outcome = &models.Outcome{ConsensusReached: true, FinalRecommendation: &rec, ConfidenceScore: &score}
	require.NoError(t, client.UpdateSession(ctx, got))

	loaded, err := client.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, loaded.State)
	require.NotNil(t, loaded.CompletedAt)
	require.NotNil(t, loaded.Outcome)
	assert.True(t, loaded.Outcome.ConsensusReached)
	assert.Equal(t, "Buy", *loaded.Outcome.FinalRecommendation)
	assert.InDelta(t, 0.7, *loaded.Outcome.ConfidenceScore, 1e-9)

	_, err = client.GetSession(ctx, uuid.NewString())
	require.ErrorIs(t, err, debate.ErrNotFound)
}

func TestListSessionsByState(t *testing.T) {
	client, ctx := testStore(t)

	for i := 0; i < 3; i++ {
		s := makeSession(models.StateDebating)
		s.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, client.CreateSession(ctx, s))
	}
	done := makeSession(models.StateCompleted)
	require.NoError(t, client.CreateSession(ctx, done))

	debating := models.StateDebating
	got, err := client.ListSessions(ctx, &debating, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i-1].StartedAt.Before(got[i].StartedAt), "descending by start time")
	}

	page, err := client.ListSessions(ctx, nil, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestAppendMessageOrdering(t *testing.T) {
	client, ctx := testStore(t)

	session := makeSession(models.StateDebating)
	require.NoError(t, client.CreateSession(ctx, session))

	conf := 0.8
	for i := 0; i < 3; i++ {
		msg, err := client.AppendMessage(ctx, &models.Message{
			ID:         uuid.NewString(),
			SessionID:  session.ID,
			Role:       models.RoleFinancialAnalyst,
			Content:    fmt.Sprintf("turn %d", i),
			Confidence: &conf,
			Citations:  []models.Citation{{Kind: models.CitationURL, Value: "https://example.com/q2"}},
		})
		require.NoError(t, err)
		assert.Equal(t, i, msg.Order)
		assert.False(t, msg.CreatedAt.IsZero())
	}

	messages, err := client.ListMessages(ctx, session.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, m := range messages {
		assert.Equal(t, i, m.Order)
		assert.Equal(t, session.ID, m.SessionID)
	}
	require.Len(t, messages[0].Citations, 1)
	assert.Equal(t, models.CitationURL, messages[0].Citations[0].Kind)
}

func TestAppendMessageStateGuard(t *testing.T) {
	client, ctx := testStore(t)

	session := makeSession(models.StateCancelled)
	require.NoError(t, client.CreateSession(ctx, session))

	_, err := client.AppendMessage(ctx, &models.Message{
		ID: uuid.NewString(), SessionID: session.ID, Role: models.RoleMarketContext, Content: "x",
	})
	require.ErrorIs(t, err, debate.ErrNotAppendable)

	_, err = client.AppendMessage(ctx, &models.Message{
		ID: uuid.NewString(), SessionID: uuid.NewString(), Role: models.RoleMarketContext, Content: "x",
	})
	require.ErrorIs(t, err, debate.ErrNotFound)
}

func TestAppendMessageConcurrent(t *testing.T) {
	client, ctx := testStore(t)

	session := makeSession(models.StateDebating)
	require.NoError(t, client.CreateSession(ctx, session))

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.AppendMessage(ctx, &models.Message{
				ID: uuid.NewString(), SessionID: session.ID, Role: models.RoleRiskChallenger, Content: "x",
			})
		}(i)
	}
	wg.Wait()

	// Losing writers surface conflicts; winners land with dense orders.
	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, debate.ErrConflict)
		}
	}
	require.Positive(t, ok)

	messages, err := client.ListMessages(ctx, session.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, ok)
	for i, m := range messages {
		assert.Equal(t, i, m.Order, "no gaps, no duplicates")
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	client, ctx := testStore(t)

	session := makeSession(models.StateDebating)
	require.NoError(t, client.CreateSession(ctx, session))
	_, err := client.AppendMessage(ctx, &models.Message{
		ID: uuid.NewString(), SessionID: session.ID, Role: models.RoleFinancialAnalyst, Content: "x",
	})
	require.NoError(t, err)

	require.NoError(t, client.DeleteSession(ctx, session.ID))

	_, err = client.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, debate.ErrNotFound)

	_, err = client.ListMessages(ctx, session.ID, 0, 0)
	require.ErrorIs(t, err, debate.ErrNotFound)
}

func TestSignalRegistry(t *testing.T) {
	client, ctx := testStore(t)

	sig := &models.Signal{
		ID: "sig:earnings:NVDA", Symbol: "NVDA", Kind: "earnings",
		Strength: 0.8, Summary: "Q2 beat", UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, client.UpsertSignal(ctx, sig))

	got, err := client.GetSignal(ctx, "sig:earnings:NVDA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "NVDA", got.Symbol)
	assert.InDelta(t, 0.8, got.Strength, 1e-9)

	missing, err := client.GetSignal(ctx, "sig:earnings:TSLA")
	require.NoError(t, err)
	assert.Nil(t, missing)

	known, err := client.HasSignal(ctx, "sig:earnings:NVDA")
	require.NoError(t, err)
	assert.True(t, known)

	sig.Strength = 0.9
	require.NoError(t, client.UpsertSignal(ctx, sig))
	got, err = client.GetSignal(ctx, "sig:earnings:NVDA")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.Strength, 1e-9)

	signals, err := client.ListSignals(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}
