package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "clinica"
	pgPassword = "clinica"
	pgDatabase = "clinicatest"
)

// startPostgresContainer provides a throwaway Postgres for the suite. When
// CLINICA_TEST_DATABASE_URL is set that database is used as-is (CI runners
// with a service container); otherwise a postgres:16-alpine container is
// started through the Docker CLI and torn down by the returned cleanup.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	if connStr := os.Getenv("CLINICA_TEST_DATABASE_URL"); connStr != "" {
		return connStr, func() {}, nil
	}

	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		return "", nil, fmt.Errorf("docker unavailable (set CLINICA_TEST_DATABASE_URL to use an external database): %w", err)
	}

	port, err := freePort()
	if err != nil {
		return "", nil, fmt.Errorf("find free port: %w", err)
	}
	name := fmt.Sprintf("clinica-it-%d", port)

	// A stale container from an aborted run would hold the name.
	exec.CommandContext(ctx, "docker", "rm", "-f", name).Run()

	args := []string{
		"run", "-d", "--rm",
		"--name", name,
		"-p", fmt.Sprintf("127.0.0.1:%d:5432", port),
		"-e", "POSTGRES_USER=" + pgUser,
		"-e", "POSTGRES_PASSWORD=" + pgPassword,
		"-e", "POSTGRES_DB=" + pgDatabase,
		pgImage,
	}
	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run %s: %w\n%s", pgImage, err, out)
	}
	id := strings.TrimSpace(string(out))
	cleanup := func() {
		exec.Command("docker", "stop", id).Run()
	}

	connStr := fmt.Sprintf("postgres://%s:%s@127.0.0.1:%d/%s?sslmode=disable",
		pgUser, pgPassword, port, pgDatabase)
	if err := waitForPostgres(ctx, connStr, 30*time.Second); err != nil {
		cleanup()
		return "", nil, err
	}
	return connStr, cleanup, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForPostgres polls with short single connections until the server
// answers a trivial query or the budget runs out.
func waitForPostgres(ctx context.Context, connStr string, budget time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres not ready after %v: %w", budget, lastErr)
		case <-ticker.C:
		}

		attempt, attemptCancel := context.WithTimeout(ctx, 2*time.Second)
		conn, err := pgx.Connect(attempt, connStr)
		if err == nil {
			var one int
			err = conn.QueryRow(attempt, "SELECT 1").Scan(&one)
			conn.Close(attempt)
		}
		attemptCancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
}
