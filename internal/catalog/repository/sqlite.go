package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/newtondotcom/roomplan/internal/catalog/models"
)

// ============================================================
// SQLite Repository
// ============================================================

var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrations embed.FS

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init applies every embedded migration in name order.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, s *models.Structure) error {
	rooms, err := json.Marshal(s.Rooms)
	if err != nil {
		return fmt.Errorf("encode rooms: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO structures (id, name, rooms, json_path, walls, doors, windows, openings, objects, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, s.ID, s.Name, string(rooms), s.JSONPath, s.Walls, s.Doors, s.Windows, s.Openings, s.Objects, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert structure: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Structure, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, name, rooms, json_path, walls, doors, windows, openings, objects, created_at
        FROM structures
        WHERE id = ?
    `, id)

	s, err := scanStructure(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns structures newest first.
func (r *Repository) List(ctx context.Context) ([]*models.Structure, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, rooms, json_path, walls, doors, windows, openings, objects, created_at
        FROM structures
        ORDER BY created_at DESC, id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Structure{}
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStructure(row scanner) (*models.Structure, error) {
	var (
		s     models.Structure
		rooms string
	)
	if err := row.Scan(&s.ID, &s.Name, &rooms, &s.JSONPath, &s.Walls, &s.Doors, &s.Windows, &s.Openings, &s.Objects, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rooms), &s.Rooms); err != nil {
		return nil, fmt.Errorf("decode rooms of %s: %w", s.ID, err)
	}
	return &s, nil
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// OpenSQLite opens the catalog database at dbPath, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
