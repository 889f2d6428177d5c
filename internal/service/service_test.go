package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/nz_walks/internal/config"
	"github.com/Skotchmaster/nz_walks/internal/metrics"
	"github.com/Skotchmaster/nz_walks/internal/mykafka"
	"github.com/Skotchmaster/nz_walks/internal/repo"
	pkgdb "github.com/Skotchmaster/nz_walks/pkg/db"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

type published struct {
	Topic string
	Key   string
	Event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		switch ev := e.Event.(type) {
		case mykafka.UserEvent:
			out = append(out, ev.Type)
		case mykafka.CatalogEvent:
			out = append(out, ev.Type)
		}
	}
	return out
}

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), pkgdb.Options{Driver: "sqlite", DSN: ":memory:", Silent: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := repo.New(db)
	require.NoError(t, r.AutoMigrate(context.Background()))
	return r
}

const (
	testIssuer   = "https://localhost:7001/"
	testAudience = "https://localhost:7001/"
)

func newTestIssuer() *tokens.Issuer {
	return tokens.NewIssuer([]byte("test-signing-key-with-enough-bytes"), testIssuer, testAudience, config.AccessTokenTTL)
}

func newAuthService(t *testing.T) (*AuthService, *recordingPublisher) {
	t.Helper()

	pub := &recordingPublisher{}
	return &AuthService{
		Repo:    newTestRepo(t),
		Issuer:  newTestIssuer(),
		Events:  pub,
		Metrics: metrics.New(),
	}, pub
}

var errBroker = errors.New("broker down")
