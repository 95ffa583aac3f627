package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// DatabaseContainer describes a running database container.
type DatabaseContainer struct {
	// DriverName is the database/sql driver for DSN.
	DriverName string

	// DSN is the connection string for the test database.
	DSN string

	// Terminate stops the container.
	Terminate func(ctx context.Context) error
}

// ContainerOptions configures a database container.
type ContainerOptions struct {
	// Image is the container image. Defaults depend on the database.
	Image string

	// Database is the database to create. Defaults to "sqlgate_test".
	Database string

	// StartupTimeout bounds the wait for the database to accept connections.
	StartupTimeout time.Duration
}

func (o *ContainerOptions) withDefaults(image string) ContainerOptions {
	out := ContainerOptions{Image: image, Database: "sqlgate_test", StartupTimeout: 2 * time.Minute}
	if o == nil {
		return out
	}
	if o.Image != "" {
		out.Image = o.Image
	}
	if o.Database != "" {
		out.Database = o.Database
	}
	if o.StartupTimeout > 0 {
		out.StartupTimeout = o.StartupTimeout
	}

	return out
}

// StartPostgresContainer starts a PostgreSQL container.
//
// The container is not tied to a single test; callers own its lifetime via
// Terminate (typically from TestMain).
//
// Parameters:
//   - ctx: Context for container operations
//   - opts: Optional configuration (nil uses "postgres:16-alpine")
//
// Returns:
//   - *DatabaseContainer: Container with driver name and DSN
//   - error: Error if the container fails to start or accept connections
func StartPostgresContainer(ctx context.Context, opts *ContainerOptions) (*DatabaseContainer, error) {
	o := opts.withDefaults("postgres:16-alpine")

	ctr, err := postgres.Run(ctx, o.Image,
		postgres.WithDatabase(o.Database),
		postgres.WithUsername("sqlgate"),
		postgres.WithPassword("sqlgate"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
	}

	c := &DatabaseContainer{
		DriverName: "postgres",
		DSN:        dsn,
		Terminate: func(context.Context) error {
			return testcontainers.TerminateContainer(ctr)
		},
	}

	if err := waitForDatabase(ctx, c, o.StartupTimeout); err != nil {
		_ = c.Terminate(ctx)
		return nil, err
	}

	return c, nil
}

// StartMySQLContainer starts a MySQL container.
//
// Parameters:
//   - ctx: Context for container operations
//   - opts: Optional configuration (nil uses "mysql:8.4")
//
// Returns:
//   - *DatabaseContainer: Container with driver name and DSN
//   - error: Error if the container fails to start or accept connections
func StartMySQLContainer(ctx context.Context, opts *ContainerOptions) (*DatabaseContainer, error) {
	o := opts.withDefaults("mysql:8.4")

	ctr, err := mysql.Run(ctx, o.Image,
		mysql.WithDatabase(o.Database),
		mysql.WithUsername("sqlgate"),
		mysql.WithPassword("sqlgate"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("failed to get MySQL connection string: %w", err)
	}

	c := &DatabaseContainer{
		DriverName: "mysql",
		DSN:        dsn,
		Terminate: func(context.Context) error {
			return testcontainers.TerminateContainer(ctr)
		},
	}

	if err := waitForDatabase(ctx, c, o.StartupTimeout); err != nil {
		_ = c.Terminate(ctx)
		return nil, err
	}

	return c, nil
}

// waitForDatabase pings until the database accepts connections.
func waitForDatabase(ctx context.Context, c *DatabaseContainer, timeout time.Duration) error {
	db, err := sql.Open(c.DriverName, c.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	deadline := time.Now().Add(timeout)
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		}
		time.Sleep(time.Second)
	}
}

// SkipWithoutContainer skips t when c is nil.
func SkipWithoutContainer(t *testing.T, c *DatabaseContainer, name string) {
	t.Helper()

	if c == nil {
		t.Skipf("%s container not available (run with -short=false and Docker)", name)
	}
}
