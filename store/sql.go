package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/submind/config"
	"github.com/BaSui01/submind/internal/database"
	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/transcript"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiscussionRecord is the discussions table row.
type DiscussionRecord struct {
	ID            string         `gorm:"primaryKey;size:64"`
	Prompt        string         `gorm:"type:text;not null"`
	Participants  []string       `gorm:"serializer:json"`
	Rounds        int            `gorm:"not null;default:0"`
	State         string         `gorm:"size:32;index;not null"`
	Reason        string         `gorm:"size:32"`
	Detail        string         `gorm:"type:text"`
	MessageCount  int            `gorm:"not null;default:0"`
	SpeakerCounts map[string]int `gorm:"serializer:json"`
	Failures      int            `gorm:"not null;default:0"`
	Tokens        int            `gorm:"not null;default:0"`
	StartedAt     time.Time      `gorm:"index"`
	EndedAt       time.Time
	DurationMS    int64
	Messages      []MessageRecord `gorm:"foreignKey:DiscussionID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (DiscussionRecord) TableName() string { return "submind_discussions" }

// MessageRecord is one transcript message row.
type MessageRecord struct {
	ID           string              `gorm:"primaryKey;size:64"`
	DiscussionID string              `gorm:"size:64;index;not null"`
	Seq          int                 `gorm:"not null"`
	Round        int                 `gorm:"not null"`
	Speaker      string              `gorm:"size:128;not null"`
	Role         string              `gorm:"size:64"`
	Content      string              `gorm:"type:text"`
	Timestamp    time.Time
	Meta         transcript.Metadata `gorm:"serializer:json"`
}

// TableName 指定表名
func (MessageRecord) TableName() string { return "submind_messages" }

func toRecord(s *orchestrator.Summary) DiscussionRecord {
	rec := DiscussionRecord{
		ID:            s.ID,
		Prompt:        s.Prompt,
		Participants:  s.Participants,
		Rounds:        s.Rounds,
		State:         string(s.State),
		Reason:        string(s.Reason),
		Detail:        s.Detail,
		MessageCount:  s.MessageCount,
		SpeakerCounts: s.SpeakerCounts,
		Failures:      s.Failures,
		Tokens:        s.Tokens,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		DurationMS:    s.Duration.Milliseconds(),
	}
	for _, m := range s.Messages {
		rec.Messages = append(rec.Messages, MessageRecord{
			ID:           m.ID,
			DiscussionID: s.ID,
			Seq:          m.Seq,
			Round:        m.Round,
			Speaker:      m.Speaker,
			Role:         m.Role,
			Content:      m.Content,
			Timestamp:    m.Timestamp,
			Meta:         m.Meta,
		})
	}
	return rec
}

func (rec DiscussionRecord) summary() *orchestrator.Summary {
	s := &orchestrator.Summary{
		ID:            rec.ID,
		Prompt:        rec.Prompt,
		Participants:  rec.Participants,
		Rounds:        rec.Rounds,
		State:         orchestrator.State(rec.State),
		Reason:        termination.Reason(rec.Reason),
		Detail:        rec.Detail,
		MessageCount:  rec.MessageCount,
		SpeakerCounts: rec.SpeakerCounts,
		Failures:      rec.Failures,
		Tokens:        rec.Tokens,
		StartedAt:     rec.StartedAt,
		EndedAt:       rec.EndedAt,
		Duration:      time.Duration(rec.DurationMS) * time.Millisecond,
	}
	for _, m := range rec.Messages {
		s.Messages = append(s.Messages, transcript.Message{
			ID:        m.ID,
			Seq:       m.Seq,
			Round:     m.Round,
			Speaker:   m.Speaker,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Meta:      m.Meta,
		})
	}
	return s
}

// SQLStore archives discussions in a relational database through GORM.
type SQLStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// OpenSQLStore opens the configured database and migrates the schema.
func OpenSQLStore(cfg config.DatabaseConfig, logger *zap.Logger) (*SQLStore, error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	pool, err := database.NewPoolManager(db, database.PoolConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLStore(pool, logger)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore migrates the schema on an existing pool.
func NewSQLStore(pool *database.PoolManager, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.DB().AutoMigrate(&DiscussionRecord{}, &MessageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &SQLStore{pool: pool, logger: logger.With(zap.String("component", "sql_store"))}, nil
}

func (s *SQLStore) Save(ctx context.Context, sum *orchestrator.Summary) error {
	if err := validate(sum); err != nil {
		return err
	}
	rec := toRecord(sum)
	msgs := rec.Messages
	rec.Messages = nil

	return s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("save discussion: %w", err)
		}
		if err := tx.Where("discussion_id = ?", rec.ID).Delete(&MessageRecord{}).Error; err != nil {
			return fmt.Errorf("replace messages: %w", err)
		}
		if len(msgs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(msgs, 100).Error; err != nil {
			return fmt.Errorf("save messages: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Get(ctx context.Context, id string) (*orchestrator.Summary, error) {
	var rec DiscussionRecord
	err := s.pool.DB().WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discussion: %w", err)
	}
	return rec.summary(), nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]*orchestrator.Summary, error) {
	q := s.pool.DB().WithContext(ctx).Model(&DiscussionRecord{})
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	var recs []DiscussionRecord
	err := q.Order("started_at DESC").Order("id ASC").
		Limit(opts.limit()).Offset(max(opts.Offset, 0)).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}
	out := make([]*orchestrator.Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.summary())
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("discussion_id = ?", id).Delete(&MessageRecord{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&DiscussionRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete discussion: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *SQLStore) Close() error {
	return s.pool.Close()
}
