package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

// updateAttempts bounds optimistic-lock retries inside Update.
const updateAttempts = 3

var errStaleVersion = errors.New("stale conversation version")

// GormStore persists conversations in a SQL database through GORM.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm opens a database for the given driver ("postgres" or "sqlite") and migrates the schema.
func OpenGorm(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewGormStore wraps an existing connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&ConversationModel{}, &MessageModel{}, &UserModel{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Create inserts a conversation and its initial messages.
func (s *GormStore) Create(ctx context.Context, c *model.Conversation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toConversationModel(c, 1)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: conversation %s already exists", lifecycle.ErrConflict, c.ID)
			}
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
		if len(c.Messages) == 0 {
			return nil
		}
		msgs := toMessageModels(c.ID, c.Messages, 0)
		if err := tx.Create(&msgs).Error; err != nil {
			return fmt.Errorf("failed to insert messages: %w", err)
		}
		return nil
	})
}

// Get loads a conversation with its full thread.
func (s *GormStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	conv, _, err := s.load(s.db.WithContext(ctx), id)
	return conv, err
}

func (s *GormStore) load(tx *gorm.DB, id string) (*model.Conversation, int, error) {
	var row ConversationModel
	if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, lifecycle.NotFound("conversation", id)
		}
		return nil, 0, fmt.Errorf("failed to load conversation: %w", err)
	}

	var msgs []MessageModel
	if err := tx.Where("conversation_id = ?", id).Order("seq ASC").Find(&msgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load messages: %w", err)
	}

	return fromConversationModel(&row, msgs), row.Version, nil
}

// List returns matching conversations with their threads.
func (s *GormStore) List(ctx context.Context, filter Filter) ([]model.Conversation, error) {
	db := s.db.WithContext(ctx)

	query := db.Model(&ConversationModel{})
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var rows []ConversationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(rows) == 0 {
		return []model.Conversation{}, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	var msgs []MessageModel
	if err := db.Where("conversation_id IN ?", ids).Order("conversation_id, seq ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	byConversation := make(map[string][]MessageModel, len(rows))
	for _, m := range msgs {
		byConversation[m.ConversationID] = append(byConversation[m.ConversationID], m)
	}

	convs := make([]model.Conversation, 0, len(rows))
	for i := range rows {
		convs = append(convs, *fromConversationModel(&rows[i], byConversation[rows[i].ID]))
	}
	return convs, nil
}

// Update applies fn with an optimistic version check, retrying when another writer won the race.
func (s *GormStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Conversation, error) {
	var updated *model.Conversation

	for attempt := 0; attempt < updateAttempts; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			conv, version, err := s.load(tx, id)
			if err != nil {
				return err
			}
			existing := len(conv.Messages)

			if err := fn(conv); err != nil {
				return err
			}

			row := toConversationModel(conv, version+1)
			res := tx.Model(&ConversationModel{}).
				Where("id = ? AND version = ?", id, version).
				Select("*").
				Omit("id", "created_at").
				Updates(row)
			if res.Error != nil {
				return fmt.Errorf("failed to update conversation: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return errStaleVersion
			}

			if len(conv.Messages) > existing {
				fresh := toMessageModels(id, conv.Messages[existing:], existing)
				if err := tx.Create(&fresh).Error; err != nil {
					return fmt.Errorf("failed to append messages: %w", err)
				}
			}

			updated = conv
			return nil
		})
		if errors.Is(err, errStaleVersion) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("%w: conversation %s was modified concurrently", lifecycle.ErrConflict, id)
}

// SaveUser upserts a profile.
func (s *GormStore) SaveUser(ctx context.Context, p *model.UserProfile) error {
	row := UserModel{
		UID:       p.UID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "role"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser loads a profile.
func (s *GormStore) GetUser(ctx context.Context, uid string) (*model.UserProfile, error) {
	var row UserModel
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &model.UserProfile{
		UID:       row.UID,
		Name:      row.Name,
		Email:     row.Email,
		Role:      model.Role(row.Role),
		CreatedAt: row.CreatedAt,
	}, nil
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
