package model

import "time"

// TriviaDailyLimit 每个自然日最多作答次数
const TriviaDailyLimit = 10

// TriviaStreak 每个账户一行，首次出题时创建
type TriviaStreak struct {
	HardModel
	AccountID     int64      `gorm:"uniqueIndex;not null" json:"-"`
	CurrentStreak int        `gorm:"not null;default:0" json:"current_streak"`
	MaxStreak     int        `gorm:"not null;default:0;index:idx_trivia_streaks_max" json:"max_streak"`
	DailyCount    int        `gorm:"not null;default:0" json:"daily_count"` // LastPlayedAt 所在自然日的作答次数
	LastPlayedAt  *time.Time `gorm:"type:timestamptz" json:"last_played_at,omitempty"`
}

// TableName 指定表名
func (TriviaStreak) TableName() string {
	return "trivia_streaks"
}

// TriviaHistory 作答记录
type TriviaHistory struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID     int64     `gorm:"not null;index:idx_trivia_history_account_time" json:"-"`
	Question      string    `gorm:"type:text;not null" json:"question"`
	GivenAnswer   string    `gorm:"type:text;not null" json:"given_answer"`
	CorrectAnswer string    `gorm:"type:text;not null" json:"correct_answer"`
	WasCorrect    bool      `gorm:"not null;default:false" json:"was_correct"`
	PointsDelta   int64     `gorm:"not null;default:0" json:"points_delta"`
	FreezerUsed   bool      `gorm:"not null;default:false" json:"freezer_used"`
	AnsweredAt    time.Time `gorm:"not null;default:now();index:idx_trivia_history_account_time" json:"answered_at"`
}

// TableName 指定表名
func (TriviaHistory) TableName() string {
	return "trivia_history"
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Username  string `json:"username"`
	MaxStreak int    `json:"max_streak"`
}
