package testutils

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"

	"github.com/Black-And-White-Club/lobby-bot/db/bundb"
	"github.com/Black-And-White-Club/lobby-bot/integration_tests/containers"
)

// TestEnvironment holds the containers and connections shared by one test binary.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	DSN           string
	NatsURL       string
}

var (
	sharedEnv     *TestEnvironment
	sharedEnvErr  error
	sharedEnvOnce sync.Once
)

// GetOrCreateTestEnv returns the environment of this test binary, starting the
// containers and running every migration on first use.
func GetOrCreateTestEnv(t *testing.T) *TestEnvironment {
	t.Helper()
	sharedEnvOnce.Do(func() {
		sharedEnv, sharedEnvErr = newTestEnvironment()
	})
	if sharedEnvErr != nil {
		t.Fatalf("Failed to set up test environment: %v", sharedEnvErr)
	}
	return sharedEnv
}

func newTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel}

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}
	env.PgContainer = pgContainer
	env.DSN = dsn

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.terminate()
		return nil, fmt.Errorf("failed to setup nats container: %w", err)
	}
	env.NatsContainer = natsContainer
	env.NatsURL = natsURL

	env.DB = bundb.Open(dsn)

	if err := RunMigrations(ctx, env.DB, dsn); err != nil {
		env.terminate()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return env, nil
}

// Shutdown releases the shared environment. Call it from TestMain after m.Run.
func Shutdown() {
	if sharedEnv == nil {
		return
	}
	sharedEnv.terminate()
}

func (env *TestEnvironment) terminate() {
	if env.DB != nil {
		if err := env.DB.Close(); err != nil {
			log.Printf("Failed to close DB: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
	env.CancelContext()
}
