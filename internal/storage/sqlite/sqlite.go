package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/storage"
)

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db *gorm.DB
}

type messageModel struct {
	ID        uint   `gorm:"primaryKey"`
	Room      string `gorm:"index:idx_messages_room_created"`
	Username  string
	Body      string
	CreatedAt time.Time `gorm:"index:idx_messages_room_created"`
}

func (messageModel) TableName() string { return "messages" }

type roomModel struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (roomModel) TableName() string { return "rooms" }

// NewStore opens a SQLite database at the provided path.
func NewStore(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&messageModel{}, &roomModel{})
}

// AppendMessage stores a new chat message. The persistence timestamp is
// assigned here and written back to msg.
func (s *Store) AppendMessage(ctx context.Context, msg *storage.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	model := messageModel{
		Room:      msg.Room,
		Username:  msg.Username,
		Body:      msg.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

// RecentMessages returns up to limit most recent messages for a room,
// ordered oldest first.
func (s *Store) RecentMessages(ctx context.Context, room string, limit int) ([]storage.Message, error) {
	var models []messageModel
	err := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	// Query returns newest first; reverse into chronological order.
	messages := make([]storage.Message, len(models))
	for i, model := range models {
		messages[len(models)-1-i] = storage.Message{
			ID:        model.ID,
			Room:      model.Room,
			Username:  model.Username,
			Body:      model.Body,
			CreatedAt: model.CreatedAt,
		}
	}
	return messages, nil
}

// CreateRoom stores a new room record.
func (s *Store) CreateRoom(ctx context.Context, name string) (*storage.Room, error) {
	exists, err := s.RoomExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, storage.ErrRoomExists
	}
	model := roomModel{Name: name, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return &storage.Room{Name: model.Name, CreatedAt: model.CreatedAt}, nil
}

// ListRooms returns all room records ordered by name.
func (s *Store) ListRooms(ctx context.Context) ([]storage.Room, error) {
	var models []roomModel
	if err := s.db.WithContext(ctx).Order("name").Find(&models).Error; err != nil {
		return nil, err
	}
	rooms := make([]storage.Room, len(models))
	for i, model := range models {
		rooms[i] = storage.Room{Name: model.Name, CreatedAt: model.CreatedAt}
	}
	return rooms, nil
}

// RoomExists reports whether a room record with the given name exists.
func (s *Store) RoomExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&roomModel{}).
		Where("name = ?", name).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteRoom removes a room record and purges its messages.
func (s *Store) DeleteRoom(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("name = ?", name).Delete(&roomModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return tx.Where("room = ?", name).Delete(&messageModel{}).Error
	})
}
