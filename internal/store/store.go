package store

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"bus-listing-backend/internal/model"
)

// Repository owns the bus_routes table. It only ever appends rows.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	InsertBatch(ctx context.Context, records []model.Record) ([]model.Record, error)
	Load(ctx context.Context) ([]model.Record, error)
}

// StorageError wraps every failure coming back from the database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// gormStore implements Repository using GORM. It holds the pool, never a
// connection: each call borrows one for the duration of its work.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed repository.
func NewGormStore(db *gorm.DB) Repository {
	return &gormStore{db: db}
}

// sqliteSchema is spelled out because the sqlite driver's migrator omits
// AUTOINCREMENT, which lets SQLite reuse the id of a removed last row.
const sqliteSchema = "CREATE TABLE `bus_routes` (" +
	"`id` integer PRIMARY KEY AUTOINCREMENT," +
	"`route_name` text NOT NULL," +
	"`bus_name` text NOT NULL," +
	"`bus_type` text NOT NULL," +
	"`departing_time` text NOT NULL," +
	"`duration` text NOT NULL," +
	"`reaching_time` text NOT NULL," +
	"`star_rating` real NOT NULL," +
	"`price` real NOT NULL," +
	"`seats_available` integer NOT NULL)"

// EnsureSchema creates bus_routes when it does not exist yet. An existing
// table is left untouched.
func (s *gormStore) EnsureSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Migrator().HasTable(&model.Record{}) {
		return nil
	}

	var err error
	if db.Dialector.Name() == "sqlite" {
		err = db.Exec(sqliteSchema).Error
	} else {
		// postgres gives the autoIncrement key a sequence, which never reuses values.
		err = db.Migrator().CreateTable(&model.Record{})
	}
	if err != nil {
		return &StorageError{Op: "ensure schema", Err: err}
	}
	log.Printf("Created table %s", model.Record{}.TableName())
	return nil
}

// InsertBatch stores records in a single transaction, one row at a time.
// Either every record is committed or none is. The returned copies carry
// the ids assigned by the database.
func (s *gormStore) InsertBatch(ctx context.Context, records []model.Record) ([]model.Record, error) {
	if len(records) == 0 {
		return []model.Record{}, nil
	}

	batch := make([]model.Record, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, &StorageError{Op: "insert batch", Err: fmt.Errorf("record %d: %w", i, err)}
		}
		r.ID = 0
		batch[i] = r
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range batch {
			if err := tx.Create(&batch[i]).Error; err != nil {
				return fmt.Errorf("failed to insert record %d (%s / %s): %w", i, batch[i].RouteName, batch[i].BusName, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "insert batch", Err: err}
	}

	log.Printf("Inserted %d records into %s", len(batch), model.Record{}.TableName())
	return batch, nil
}

// Load returns every stored record in insertion order.
func (s *gormStore) Load(ctx context.Context) ([]model.Record, error) {
	records := []model.Record{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	return records, nil
}
