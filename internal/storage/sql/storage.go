// Package sql stores users and game sessions in a relational database
// through gorm. Postgres is the production target; sqlite serves local
// runs and tests.
package sql

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/storage"
)

// Storage is a gorm-backed implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// New opens the database, configures the pool and migrates the schema
func New(cfg Config) (*Storage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown sql driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		// Sessions outlive their users, so there is nothing to enforce
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := NewWithDB(db)
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB creates a storage over an existing gorm handle
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates or updates the schema
func (s *Storage) Migrate() error {
	if err := s.db.AutoMigrate(allTables()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func preloadUser(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }
	return db.
		Preload("Emotions", byID).
		Preload("GamePlays", byID).
		Preload("SuggestedGames", byID)
}

func preloadSession(db *gorm.DB) *gorm.DB {
	return db.Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	row := toUserRow(user)
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.ErrUsernameTaken
	}
	return err
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("id = ?", string(id)))
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("username = ?", username))
}

func (s *Storage) findUser(query *gorm.DB) (*model.User, error) {
	var row userRow
	if err := preloadUser(query).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	query := s.db.WithContext(ctx).Model(&userRow{})
	if filter.Role != "" {
		query = query.Where("role = ?", string(filter.Role))
	}
	if filter.Approved != nil {
		query = query.Where("is_approved = ?", *filter.Approved)
	}
	if filter.ParentName != "" {
		query = query.Where("parent_name = ?", filter.ParentName)
	}
	if filter.ParentContact != "" {
		query = query.Where("parent_contact = ?", filter.ParentContact)
	}

	var rows []userRow
	if err := preloadUser(query).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]*model.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", string(id)).Delete(&userRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrUserNotFound
		}
		for _, child := range []any{&emotionRow{}, &gamePlayRow{}, &suggestionRow{}} {
			if err := tx.Where("user_id = ?", string(id)).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) AppendEmotion(ctx context.Context, id model.UserID, entry model.EmotionLog) error {
	return s.appendToUser(ctx, id, &emotionRow{
		UserID:         string(id),
		GameName:       entry.GameName,
		QuestionNumber: entry.QuestionNumber,
		Emotion:        entry.Emotion,
		Score:          entry.Score,
		Timestamp:      entry.Timestamp,
	})
}

func (s *Storage) AppendGamePlay(ctx context.Context, id model.UserID, entry model.GamePlay) error {
	return s.appendToUser(ctx, id, &gamePlayRow{
		UserID:     string(id),
		GameName:   entry.GameName,
		FinalScore: entry.FinalScore,
		Timestamp:  entry.Timestamp,
	})
}

func (s *Storage) AppendSuggestedGame(ctx context.Context, id model.UserID, gameName string) error {
	return s.appendToUser(ctx, id, &suggestionRow{UserID: string(id), GameName: gameName})
}

func (s *Storage) appendToUser(ctx context.Context, id model.UserID, row any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("id = ?", string(id)).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return model.ErrUserNotFound
		}
		return tx.Create(row).Error
	})
}

func (s *Storage) ApproveTherapist(ctx context.Context, username string) (*model.User, error) {
	var approved *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRow{}).
			Where("username = ? AND role = ?", username, string(model.RoleTherapist)).
			Update("is_approved", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrTherapistNotFound
		}

		u, err := s.findUser(tx.Where("username = ?", username))
		if err != nil {
			return err
		}
		approved = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Session operations

func (s *Storage) RecordObservation(ctx context.Context, obs model.Observation, newSession *model.GameSession) (*model.GameSession, error) {
	key := obs.OpenKey()

	var recorded sessionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := toSessionRow(newSession)
		candidate.Questions = nil
		candidate.OpenKey = &key

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_name"}, {Name: "open_key"}},
			DoNothing: true,
		}).Create(&candidate).Error
		if err != nil {
			return err
		}

		var open sessionRow
		err = tx.Where("user_id = ? AND game_name = ? AND open_key = ?", string(obs.UserID), obs.GameName, key).
			First(&open).Error
		if err != nil {
			return err
		}

		question := toQuestionRow(open.ID, obs.Question)
		if err := tx.Create(&question).Error; err != nil {
			return err
		}

		updates := map[string]any{}
		if obs.FinalScore != nil {
			updates["final_score"] = *obs.FinalScore
		}
		if obs.Completes() {
			updates["open_key"] = nil
		}
		if len(updates) > 0 {
			if err := tx.Model(&sessionRow{}).Where("id = ?", open.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		return preloadSession(tx).Where("id = ?", open.ID).First(&recorded).Error
	})
	if err != nil {
		return nil, err
	}
	return recorded.toModel(), nil
}

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	row := toSessionRow(session)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", row.ID).Delete(&questionRow{}).Error; err != nil {
			return err
		}
		return tx.Save(&row).Error
	})
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.GameSession, error) {
	var row sessionRow
	if err := preloadSession(s.db.WithContext(ctx)).Where("id = ?", string(id)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) ListSessionsForUser(ctx context.Context, userID model.UserID) ([]*model.GameSession, error) {
	var rows []sessionRow
	err := preloadSession(s.db.WithContext(ctx)).
		Where("user_id = ?", string(userID)).
		Order("started_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*model.GameSession, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}
