// Package history archives finished bouts in MySQL.
package history

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sumo-arena/internal/game"
)

// MatchRecord is one finished bout
type MatchRecord struct {
	gorm.Model
	MatchID    string `gorm:"type:varchar(64);uniqueIndex;not null"`
	P1ID       string `gorm:"type:varchar(64);not null"`
	P2ID       string `gorm:"type:varchar(64);not null"`
	WinnerID   string `gorm:"type:varchar(64);index"`
	WinnerName string `gorm:"type:varchar(64)"`
	Duration   float64
	EndedAt    time.Time
	EventLog   string `gorm:"type:mediumtext"` // ordered JSON event log for replay
}

// MatchHistory is one wrestler's line for a bout
type MatchHistory struct {
	gorm.Model
	WrestlerID string `gorm:"type:varchar(64);index;not null"`
	MatchID    string `gorm:"type:varchar(64);index"`
	OpponentID string `gorm:"type:varchar(64)"`
	IsWinner   bool
	Pushes     int
	Timestamp  int64
}

// Archive writes bouts and answers history queries
type Archive struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the tables
func Open(dsn string) (*Archive, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, eris.Wrap(err, "mysql connect")
	}
	if err := db.AutoMigrate(&MatchRecord{}, &MatchHistory{}); err != nil {
		return nil, eris.Wrap(err, "mysql migrate")
	}
	return &Archive{db: db}, nil
}

// RecordMatchResult stores the bout and both wrestlers' lines in one transaction
func (a *Archive) RecordMatchResult(ctx context.Context, s game.Summary) error {
	rec, lines, err := recordsFor(s)
	if err != nil {
		return err
	}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return tx.Create(&lines).Error
	})
	return eris.Wrapf(err, "archive match %s", s.MatchID)
}

// History pages through a wrestler's bouts, newest first
func (a *Archive) History(ctx context.Context, wrestlerID string, page, limit int) ([]MatchHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var out []MatchHistory
	err := a.db.WithContext(ctx).
		Where("wrestler_id = ?", wrestlerID).
		Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out).Error
	return out, eris.Wrapf(err, "history for %q", wrestlerID)
}

// Close releases the pool
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordsFor(s game.Summary) (MatchRecord, []MatchHistory, error) {
	logJSON, err := json.Marshal(s.Log)
	if err != nil {
		return MatchRecord{}, nil, eris.Wrap(err, "encode event log")
	}
	ended := s.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}

	rec := MatchRecord{
		MatchID:    s.MatchID,
		P1ID:       s.P1.ID,
		P2ID:       s.P2.ID,
		WinnerID:   s.WinnerID,
		WinnerName: s.WinnerName,
		Duration:   s.Duration,
		EndedAt:    ended,
		EventLog:   string(logJSON),
	}
	lines := []MatchHistory{
		{WrestlerID: s.P1.ID, MatchID: s.MatchID, OpponentID: s.P2.ID, IsWinner: s.WinnerID == s.P1.ID, Pushes: s.P1.PushCount, Timestamp: ended.Unix()},
		{WrestlerID: s.P2.ID, MatchID: s.MatchID, OpponentID: s.P1.ID, IsWinner: s.WinnerID == s.P2.ID, Pushes: s.P2.PushCount, Timestamp: ended.Unix()},
	}
	return rec, lines, nil
}
