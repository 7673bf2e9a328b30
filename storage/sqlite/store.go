// Package sqlite provides a SQLite-backed room storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"battlerooms/game"
	"battlerooms/storage"
	"battlerooms/storage/sqlite/migrations"
	"battlerooms/storage/sqlitemigrate"

	_ "modernc.org/sqlite"
)

// Store persists room definitions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite room store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadRooms returns every stored room ordered by name.
func (s *Store) LoadRooms(ctx context.Context) ([]storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name, room_type, world,
		        pos1_x, pos1_y, pos1_z,
		        pos2_x, pos2_y, pos2_z,
		        gate1_x, gate1_y, gate1_z,
		        gate2_x, gate2_y, gate2_z,
		        created_at, updated_at
		   FROM rooms
		  ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()

	var out []storage.RoomRecord
	for rows.Next() {
		var (
			rec                  storage.RoomRecord
			corners              [4][3]sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(
			&rec.Name, &rec.Type, &rec.World,
			&corners[0][0], &corners[0][1], &corners[0][2],
			&corners[1][0], &corners[1][1], &corners[1][2],
			&corners[2][0], &corners[2][1], &corners[2][2],
			&corners[3][0], &corners[3][1], &corners[3][2],
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rec.Pos1 = cornerFrom(corners[0])
		rec.Pos2 = cornerFrom(corners[1])
		rec.Gate1 = cornerFrom(corners[2])
		rec.Gate2 = cornerFrom(corners[3])
		rec.CreatedAt = fromMillis(createdAt)
		rec.UpdatedAt = fromMillis(updatedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return out, nil
}

// SaveRoom inserts or replaces one room definition.
func (s *Store) SaveRoom(ctx context.Context, rec storage.RoomRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return fmt.Errorf("room name is required")
	}
	if strings.TrimSpace(rec.World) == "" {
		return fmt.Errorf("room world is required")
	}
	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	args := []any{game.NameKey(name), name, rec.Type, rec.World}
	for _, c := range []*storage.Corner{rec.Pos1, rec.Pos2, rec.Gate1, rec.Gate2} {
		args = append(args, cornerArgs(c)...)
	}
	args = append(args, toMillis(createdAt), toMillis(updatedAt))

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (
		   name_key, name, room_type, world,
		   pos1_x, pos1_y, pos1_z,
		   pos2_x, pos2_y, pos2_z,
		   gate1_x, gate1_y, gate1_z,
		   gate2_x, gate2_y, gate2_z,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name_key) DO UPDATE SET
		   name = excluded.name,
		   room_type = excluded.room_type,
		   world = excluded.world,
		   pos1_x = excluded.pos1_x, pos1_y = excluded.pos1_y, pos1_z = excluded.pos1_z,
		   pos2_x = excluded.pos2_x, pos2_y = excluded.pos2_y, pos2_z = excluded.pos2_z,
		   gate1_x = excluded.gate1_x, gate1_y = excluded.gate1_y, gate1_z = excluded.gate1_z,
		   gate2_x = excluded.gate2_x, gate2_y = excluded.gate2_y, gate2_z = excluded.gate2_z,
		   updated_at = excluded.updated_at`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("save room %s: %w", name, err)
	}
	return nil
}

// DeleteRoom removes one room definition by name, ignoring case.
func (s *Store) DeleteRoom(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rooms WHERE name_key = ?`, game.NameKey(name))
	if err != nil {
		return fmt.Errorf("delete room %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete room %s: %w", name, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func cornerFrom(v [3]sql.NullInt64) *storage.Corner {
	if !v[0].Valid || !v[1].Valid || !v[2].Valid {
		return nil
	}
	return &storage.Corner{X: int(v[0].Int64), Y: int(v[1].Int64), Z: int(v[2].Int64)}
}

func cornerArgs(c *storage.Corner) []any {
	if c == nil {
		return []any{nil, nil, nil}
	}
	return []any{c.X, c.Y, c.Z}
}

var _ storage.RoomStore = (*Store)(nil)
