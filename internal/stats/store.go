// Package stats records per-session weapon statistics in SQLite.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SessionStats is one finished session.
type SessionStats struct {
	ID        uint          `gorm:"primaryKey" json:"-"`
	SessionID string        `gorm:"size:36;uniqueIndex" json:"sessionId"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `gorm:"index" json:"endedAt"`
	Frames    uint64        `json:"frames"`
	Loadout   string        `json:"loadout"` // comma separated catalog IDs
	Shots     int           `json:"shots"`
	Hits      int           `json:"hits"`
	Reloads   int           `json:"reloads"`
	Switches  int           `json:"switches"`
	Weapons   []WeaponStats `gorm:"foreignKey:SessionStatsID;constraint:OnDelete:CASCADE" json:"weapons"`
}

// WeaponStats is the per-weapon breakdown of a session.
type WeaponStats struct {
	ID             uint   `gorm:"primaryKey" json:"-"`
	SessionStatsID uint   `gorm:"index" json:"-"`
	Weapon         string `gorm:"size:32" json:"weapon"`
	Shots          int    `json:"shots"`
	Hits           int    `json:"hits"`
}

// Accuracy returns hits per shot, or 0 before the first shot.
func (s SessionStats) Accuracy() float64 {
	if s.Shots == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Shots)
}

// LoadoutIDs splits the stored loadout.
func (s SessionStats) LoadoutIDs() []string {
	if s.Loadout == "" {
		return nil
	}
	return strings.Split(s.Loadout, ",")
}

// Totals aggregates every stored session.
type Totals struct {
	Sessions int64 `json:"sessions"`
	Shots    int64 `json:"shots"`
	Hits     int64 `json:"hits"`
	Reloads  int64 `json:"reloads"`
}

// ErrInvalidStats is returned for records that cannot be stored.
var ErrInvalidStats = errors.New("invalid session stats")

// Store persists session statistics.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path. An empty path opens a private
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(&SessionStats{}, &WeaponStats{}); err != nil {
		return nil, fmt.Errorf("migrate stats db: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts a finished session with its weapon breakdown.
func (s *Store) Save(ctx context.Context, st *SessionStats) error {
	if st == nil || st.SessionID == "" {
		return ErrInvalidStats
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(st).Error
	})
}

// Recent returns up to n sessions, most recently ended first.
func (s *Store) Recent(ctx context.Context, n int) ([]SessionStats, error) {
	if n <= 0 {
		n = 20
	}
	var out []SessionStats
	err := s.db.WithContext(ctx).
		Preload("Weapons", func(db *gorm.DB) *gorm.DB { return db.Order("weapon") }).
		Order("ended_at desc").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	return out, nil
}

// Get returns one session by its session ID.
func (s *Store) Get(ctx context.Context, sessionID string) (SessionStats, error) {
	var out SessionStats
	err := s.db.WithContext(ctx).
		Preload("Weapons").
		Where("session_id = ?", sessionID).
		First(&out).Error
	return out, err
}

// Totals sums shots, hits and reloads across all sessions.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.WithContext(ctx).
		Model(&SessionStats{}).
		Select("count(*) as sessions, coalesce(sum(shots), 0) as shots, coalesce(sum(hits), 0) as hits, coalesce(sum(reloads), 0) as reloads").
		Scan(&t).Error
	return t, err
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
