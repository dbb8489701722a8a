package repositories

import (
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/lib/pq"

	"ticketing-engine/internal/database"
	"ticketing-engine/internal/models"
)

// setupTestDB connects to the integration test database, skipping the
// test when TEST_DATABASE_URL is not set.
func setupTestDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Failed to ping test database: %v", err)
	}

	if err := database.NewMigrator(db).RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

// createTestTicketType inserts a fresh flat-priced ticket type and
// registers cleanup for it.
func createTestTicketType(t *testing.T, db *sql.DB, stock int) int {
	repo := NewTicketTypeRepository(db)

	tt, err := repo.Create(&models.TicketTypeCreateRequest{
		Name:        "Integration Test Type",
		UnitPrice:   1000,
		PricingMode: models.PricingFlat,
		TotalStock:  stock,
		MinPerOrder: 1,
		MaxPerOrder: stock,
	})
	if err != nil {
		t.Fatalf("Failed to create ticket type: %v", err)
	}

	t.Cleanup(func() {
		db.Exec("DELETE FROM ticket_types WHERE id = $1", tt.ID)
	})

	return tt.ID
}

func assertCounters(t *testing.T, repo *InventoryRepository, id, available, reserved, sold int) {
	t.Helper()

	counters, err := repo.GetCounters(id)
	if err != nil {
		t.Fatalf("GetCounters() error: %v", err)
	}
	if counters.Available != available || counters.Reserved != reserved || counters.Sold != sold {
		t.Errorf("counters = %d/%d/%d, want %d/%d/%d",
			counters.Available, counters.Reserved, counters.Sold, available, reserved, sold)
	}
	if err := counters.CheckConservation(); err != nil {
		t.Errorf("conservation violated: %v", err)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id := createTestTicketType(t, db, 10)
	repo := NewInventoryRepository(db)

	if err := repo.Reserve(id, 4); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	assertCounters(t, repo, id, 6, 4, 0)

	if err := repo.Release(id, 4); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	assertCounters(t, repo, id, 10, 0, 0)
}

func TestReserveRejectsOversell(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id := createTestTicketType(t, db, 3)
	repo := NewInventoryRepository(db)

	if err := repo.Reserve(id, 5); !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("Reserve() error = %v, want ErrInsufficientStock", err)
	}
	assertCounters(t, repo, id, 3, 0, 0)
}

func TestReserveConcurrentOversell(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	// One fewer unit than reservation attempts: exactly one must lose.
	const workers = 8
	id := createTestTicketType(t, db, workers-1)
	repo := NewInventoryRepository(db)

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Reserve(id, 1)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, insufficient := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInsufficientStock):
			insufficient++
		default:
			t.Errorf("Reserve() unexpected error: %v", err)
		}
	}

	if succeeded != workers-1 || insufficient != 1 {
		t.Errorf("reservations = %d succeeded / %d insufficient, want %d/1",
			succeeded, insufficient, workers-1)
	}
	assertCounters(t, repo, id, 0, workers-1, 0)
}

func TestCommitSale(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id := createTestTicketType(t, db, 10)
	repo := NewInventoryRepository(db)

	if err := repo.Reserve(id, 3); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	if err := repo.CommitSale(id, 3); err != nil {
		t.Fatalf("CommitSale() error: %v", err)
	}
	assertCounters(t, repo, id, 7, 0, 3)
}

func TestCommitWithoutReservationIsInvariantViolation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id := createTestTicketType(t, db, 10)
	repo := NewInventoryRepository(db)

	if err := repo.CommitSale(id, 2); !models.IsInvariantViolation(err) {
		t.Fatalf("CommitSale() error = %v, want InvariantViolationError", err)
	}
}

func TestReserveUnknownTicketType(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewInventoryRepository(db)
	if err := repo.Reserve(-1, 1); !errors.Is(err, models.ErrTicketTypeNotFound) {
		t.Fatalf("Reserve() error = %v, want ErrTicketTypeNotFound", err)
	}
}
