package integration_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/arloliu/sqlgate/test/testutil"
)

// sharedContainers holds the database containers shared by all integration tests.
var sharedContainers struct {
	postgres *testutil.DatabaseContainer
	mysql    *testutil.DatabaseContainer
}

// TestMain starts the database containers once for the whole package.
// A container that fails to start leaves its suite skipped.
func TestMain(m *testing.M) {
	flag.Parse()

	ctx := context.Background()

	switch {
	case testing.Short():
		fmt.Println("Skipping container-backed suites in short mode")
	case os.Getenv("SKIP_INTEGRATION_TESTS") == "1":
		fmt.Println("Skipping container-backed suites (SKIP_INTEGRATION_TESTS=1)")
	default:
		setupSharedContainers(ctx)
	}

	code := m.Run()

	teardownSharedContainers(ctx)
	os.Exit(code)
}

func setupSharedContainers(ctx context.Context) {
	fmt.Println("Starting database containers for integration tests...")

	pg, err := testutil.StartPostgresContainer(ctx, nil)
	if err != nil {
		fmt.Printf("PostgreSQL unavailable: %v\n", err)
	} else {
		sharedContainers.postgres = pg
	}

	my, err := testutil.StartMySQLContainer(ctx, nil)
	if err != nil {
		fmt.Printf("MySQL unavailable: %v\n", err)
	} else {
		sharedContainers.mysql = my
	}
}

func teardownSharedContainers(ctx context.Context) {
	if sharedContainers.postgres != nil {
		_ = sharedContainers.postgres.Terminate(ctx)
	}
	if sharedContainers.mysql != nil {
		_ = sharedContainers.mysql.Terminate(ctx)
	}
}
