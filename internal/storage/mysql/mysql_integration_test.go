//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"pnr_cleaner/internal/domain"
	mysqlrepo "pnr_cleaner/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=pnr",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/pnr?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func TestRepo_MySQL_RunAndReservations(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	runID := "0b8f7c9e-2f4a-4c1e-9d0a-1f2e3d4c5b6a"
	started := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	sum := domain.RunSummary{
		RunID: runID, StartedAt: started, FinishedAt: started.Add(3 * time.Second),
		Input: 200, Dropped: map[domain.DropReason]int{domain.DropInvalidAirport: 24, domain.DropAllNull: 4},
		Duplicates: 10, Clean: 2, Confirmed: 1, Failed: 1,
	}
	if err := repo.SaveRun(ctx, sum); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	rs := []domain.Reservation{
		{ID: "AB1234", PassengerName: "Ana Silva", Origin: "JFK", Destination: "LHR",
			Fare: domain.Fare{Amount: decimal.RequireFromString("123.45"), Valid: true}, Status: domain.StatusConfirmed},
		{ID: "CD5678", PassengerName: "Chen Wei", Origin: "SFO", Destination: "NRT",
			Fare: domain.Fare{Amount: decimal.RequireFromString("99"), Valid: true}, Status: domain.StatusPending},
	}
	outcomes := []domain.Outcome{
		{ReservationID: "AB1234", State: domain.StateConfirmed, Attempts: 3, Retries: 2},
		{ReservationID: "CD5678", State: domain.StatePermanentlyFailed, Attempts: 4, Retries: 3, Err: errors.New("remote 503")},
	}
	if err := repo.UpsertReservations(ctx, runID, rs, outcomes); err != nil {
		t.Fatalf("UpsertReservations: %v", err)
	}

	got, err := repo.GetReservation(ctx, "AB1234")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if got.Fare != "123.45" || got.Confirmation != "confirmed" || got.Attempts != 3 || got.RunID != runID {
		t.Fatalf("unexpected reservation: %+v", got)
	}
	failed, err := repo.GetReservation(ctx, "CD5678")
	if err != nil || failed.Confirmation != "permanently_failed" || failed.LastError != "remote 503" {
		t.Fatalf("unexpected failed reservation: %+v err=%v", failed, err)
	}

	run, err := repo.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Input != 200 || run.Dropped["invalid_airport"] != 24 || !run.StartedAt.Equal(started) {
		t.Fatalf("unexpected run: %+v", run)
	}

	if _, err := repo.GetReservation(ctx, "NOPE00"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_MySQL_ColumnBounds(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	runID := "7d1e2c3b-4a5f-4e6d-8c7b-9a0f1e2d3c4b"

	longest := strings.Repeat("P", domain.MaxIDLen)
	tooLong := strings.Repeat("Q", domain.MaxIDLen+1)
	res := func(id, fare string) domain.Reservation {
		return domain.Reservation{ID: id, PassengerName: "Ana Silva", Origin: "JFK", Destination: "LHR",
			Fare: domain.Fare{Amount: decimal.RequireFromString(fare), Valid: true}, Status: domain.StatusConfirmed}
	}
	rs := []domain.Reservation{
		res(longest, "123.456"),
		res(tooLong, "10"),
		res("RES-000123", "1e12"),
		res("BIGFARE1", "1e18"),
	}
	err := repo.UpsertReservations(ctx, runID, rs, nil)
	if !errors.Is(err, domain.ErrUnstorable) {
		t.Fatalf("expected ErrUnstorable for out-of-bounds rows, got %v", err)
	}

	got, err := repo.GetReservation(ctx, longest)
	if err != nil || got.Fare != "123.456" {
		t.Fatalf("boundary pnr: %+v err=%v", got, err)
	}
	got, err = repo.GetReservation(ctx, "RES-000123")
	if err != nil || got.Fare != "1000000000000" {
		t.Fatalf("large fare: %+v err=%v", got, err)
	}
	for _, id := range []string{tooLong, "BIGFARE1"} {
		if _, err := repo.GetReservation(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s should have been skipped, got %v", id, err)
		}
	}
}
