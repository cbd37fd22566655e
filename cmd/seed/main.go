package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/dinehub/assignment-api/internal/config"
)

// Seeds a demo hotel with one branch, a hotel admin and a few waiters, so the
// assignment flow can be exercised end to end on a fresh database.
func main() {
	email := flag.String("email", "", "Hotel admin email address")
	password := flag.String("password", "", "Hotel admin password")
	name := flag.String("name", "", "Hotel admin full name")
	waiters := flag.Int("waiters", 3, "Number of demo waiters to create")
	flag.Parse()

	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	if *email == "" {
		*email = "admin@dinehub.app"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "DineHub Admin"
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction: the whole hierarchy or nothing.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	hotelID, err := seedHotel(ctx, tx)
	if err != nil {
		log.Fatalf("Failed to seed hotel: %v", err)
	}

	branchID, err := seedBranch(ctx, tx, hotelID)
	if err != nil {
		log.Fatalf("Failed to seed branch: %v", err)
	}

	adminID, err := seedAdmin(ctx, tx, hotelID, branchID, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed hotel admin: %v", err)
	}

	if err := seedWaiters(ctx, tx, hotelID, branchID, *waiters, cfg.DefaultMaxCapacity); err != nil {
		log.Fatalf("Failed to seed waiters: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Hotel ID:  %s", hotelID)
	log.Printf("Branch ID: %s", branchID)
	log.Printf("Admin ID:  %s", adminID)
}

func seedHotel(ctx context.Context, tx pgx.Tx) (uuid.UUID, error) {
	const hotelName = "Grand Meridian"

	var existingID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM hotels WHERE name = $1 LIMIT 1`, hotelName).Scan(&existingID)
	if err == nil {
		log.Printf("Hotel '%s' already exists (ID: %s), skipping", hotelName, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check hotel: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO hotels (name, status) VALUES ($1, 'ACTIVE') RETURNING id`,
		hotelName).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert hotel: %w", err)
	}

	log.Printf("Created hotel '%s' (ID: %s)", hotelName, newID)
	return newID, nil
}

func seedBranch(ctx context.Context, tx pgx.Tx, hotelID uuid.UUID) (uuid.UUID, error) {
	const branchName = "Rooftop Restaurant"

	var existingID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM branches WHERE hotel_id = $1 AND name = $2 LIMIT 1`,
		hotelID, branchName).Scan(&existingID)
	if err == nil {
		log.Printf("Branch '%s' already exists (ID: %s), skipping", branchName, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check branch: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO branches (hotel_id, name, status) VALUES ($1, $2, 'ACTIVE') RETURNING id`,
		hotelID, branchName).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert branch: %w", err)
	}

	// A fresh branch starts its round-robin rotation at the beginning.
	if _, err := tx.Exec(ctx,
		`INSERT INTO round_robin_cursors (branch_id, position) VALUES ($1, 0)
		 ON CONFLICT (branch_id) DO NOTHING`, newID); err != nil {
		return uuid.Nil, fmt.Errorf("insert cursor: %w", err)
	}

	log.Printf("Created branch '%s' (ID: %s)", branchName, newID)
	return newID, nil
}

func seedAdmin(ctx context.Context, tx pgx.Tx, hotelID, branchID uuid.UUID, email, password, fullName string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM staff WHERE email = $1 LIMIT 1`, email).Scan(&existingID)
	if err == nil {
		log.Printf("Staff '%s' already exists (ID: %s), skipping", email, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check staff: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO staff (hotel_id, branch_id, name, email, password_hash, role, status, is_available)
		VALUES ($1, $2, $3, $4, $5, 'HOTEL_ADMIN', 'ACTIVE', false)
		RETURNING id`,
		hotelID, branchID, fullName, email, string(hashed)).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert admin: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE hotels SET admin_id = $1, updated_at = now() WHERE id = $2`, newID, hotelID); err != nil {
		return uuid.Nil, fmt.Errorf("link hotel admin: %w", err)
	}

	log.Printf("Created hotel admin '%s' (ID: %s)", email, newID)
	return newID, nil
}

func seedWaiters(ctx context.Context, tx pgx.Tx, hotelID, branchID uuid.UUID, count, maxCapacity int) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte("waiter123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	for i := 1; i <= count; i++ {
		email := fmt.Sprintf("waiter%d@dinehub.app", i)

		var existingID uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM staff WHERE email = $1 LIMIT 1`, email).Scan(&existingID)
		if err == nil {
			log.Printf("Waiter '%s' already exists (ID: %s), skipping", email, existingID)
			continue
		}
		if err != pgx.ErrNoRows {
			return fmt.Errorf("check waiter: %w", err)
		}

		var newID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO staff (hotel_id, branch_id, name, email, password_hash, role, status, is_available, max_capacity)
			VALUES ($1, $2, $3, $4, $5, 'WAITER', 'ACTIVE', true, $6)
			RETURNING id`,
			hotelID, branchID, fmt.Sprintf("Demo Waiter %d", i), email, string(hashed), maxCapacity).Scan(&newID)
		if err != nil {
			return fmt.Errorf("insert waiter: %w", err)
		}
		log.Printf("Created waiter '%s' (ID: %s)", email, newID)
	}
	return nil
}
