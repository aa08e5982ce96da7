package herd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrCowNotFound means no livestock record matches the given id.
var ErrCowNotFound = errors.New("cow not found")

// Cow is one livestock record. Price is in CLP; zero means the animal is not
// for sale.
type Cow struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Breed        string  `json:"breed"`
	Age          int     `json:"age"`
	Weight       float64 `json:"weight"`
	HealthStatus string  `json:"health_status"`
	Price        int     `json:"price"`
}

// CowUpdate carries a partial update; nil fields are left unchanged.
type CowUpdate struct {
	Name         *string  `json:"name"`
	Breed        *string  `json:"breed"`
	Age          *int     `json:"age"`
	Weight       *float64 `json:"weight"`
	HealthStatus *string  `json:"health_status"`
	Price        *int     `json:"price"`
}

// Store handles SQLite livestock storage.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the livestock database at dbPath and
// seeds it with starter records when empty.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.seed(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			breed TEXT NOT NULL,
			age INTEGER NOT NULL,
			weight REAL NOT NULL,
			health_status TEXT NOT NULL DEFAULT 'healthy',
			price INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_cows_breed ON cows(breed COLLATE NOCASE);
		CREATE INDEX IF NOT EXISTS idx_cows_health ON cows(health_status COLLATE NOCASE);
	`
	_, err := s.db.Exec(schema)
	return err
}

// seed inserts the starter herd on first run.
func (s *Store) seed() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cows").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	starter := []Cow{
		{Name: "Bessie", Breed: "Holstein", Age: 3, Weight: 650.5, HealthStatus: "healthy", Price: 1250000},
		{Name: "Daisy", Breed: "Jersey", Age: 2, Weight: 450.0, HealthStatus: "healthy", Price: 980000},
		{Name: "Moo", Breed: "Angus", Age: 4, Weight: 800.0, HealthStatus: "sick", Price: 750000},
	}
	for _, cow := range starter {
		if _, err := s.Create(&cow); err != nil {
			return fmt.Errorf("failed to seed cow %s: %w", cow.Name, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns every cow ordered by id.
func (s *Store) List() ([]Cow, error) {
	return s.query("SELECT id, name, breed, age, weight, health_status, price FROM cows ORDER BY id")
}

// Get returns one cow by id.
func (s *Store) Get(id int64) (*Cow, error) {
	row := s.db.QueryRow(
		"SELECT id, name, breed, age, weight, health_status, price FROM cows WHERE id = ?", id)

	var cow Cow
	err := row.Scan(&cow.ID, &cow.Name, &cow.Breed, &cow.Age, &cow.Weight, &cow.HealthStatus, &cow.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrCowNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &cow, nil
}

// Create inserts a new cow and returns it with its assigned id.
func (s *Store) Create(cow *Cow) (*Cow, error) {
	if cow.Name == "" || cow.Breed == "" {
		return nil, fmt.Errorf("name and breed are required")
	}
	if cow.HealthStatus == "" {
		cow.HealthStatus = "healthy"
	}

	res, err := s.db.Exec(
		"INSERT INTO cows (name, breed, age, weight, health_status, price) VALUES (?, ?, ?, ?, ?, ?)",
		cow.Name, cow.Breed, cow.Age, cow.Weight, cow.HealthStatus, cow.Price)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	cow.ID = id
	return cow, nil
}

// Update applies a partial update and returns the updated record.
func (s *Store) Update(id int64, update CowUpdate) (*Cow, error) {
	cow, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		cow.Name = *update.Name
	}
	if update.Breed != nil {
		cow.Breed = *update.Breed
	}
	if update.Age != nil {
		cow.Age = *update.Age
	}
	if update.Weight != nil {
		cow.Weight = *update.Weight
	}
	if update.HealthStatus != nil {
		cow.HealthStatus = *update.HealthStatus
	}
	if update.Price != nil {
		cow.Price = *update.Price
	}

	_, err = s.db.Exec(
		"UPDATE cows SET name = ?, breed = ?, age = ?, weight = ?, health_status = ?, price = ? WHERE id = ?",
		cow.Name, cow.Breed, cow.Age, cow.Weight, cow.HealthStatus, cow.Price, id)
	if err != nil {
		return nil, err
	}
	return cow, nil
}

// Delete removes a cow and returns the deleted record.
func (s *Store) Delete(id int64) (*Cow, error) {
	cow, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec("DELETE FROM cows WHERE id = ?", id); err != nil {
		return nil, err
	}
	return cow, nil
}

// ListByBreed returns cows of one breed, case-insensitively.
func (s *Store) ListByBreed(breed string) ([]Cow, error) {
	return s.query(
		"SELECT id, name, breed, age, weight, health_status, price FROM cows WHERE breed = ? COLLATE NOCASE ORDER BY id",
		strings.TrimSpace(breed))
}

// ListByHealthStatus returns cows with one health status, case-insensitively.
func (s *Store) ListByHealthStatus(status string) ([]Cow, error) {
	return s.query(
		"SELECT id, name, breed, age, weight, health_status, price FROM cows WHERE health_status = ? COLLATE NOCASE ORDER BY id",
		strings.TrimSpace(status))
}

func (s *Store) query(q string, args ...any) ([]Cow, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cows := []Cow{}
	for rows.Next() {
		var cow Cow
		if err := rows.Scan(&cow.ID, &cow.Name, &cow.Breed, &cow.Age, &cow.Weight, &cow.HealthStatus, &cow.Price); err != nil {
			return nil, err
		}
		cows = append(cows, cow)
	}
	return cows, rows.Err()
}
