package model

// PointReason 积分变动原因
type PointReason string

const (
	ReasonTriviaReward     PointReason = "trivia_reward"
	ReasonTriviaPenalty    PointReason = "trivia_penalty"
	ReasonTaskCompleted    PointReason = "task_completed"
	ReasonPurchase         PointReason = "purchase"
	ReasonTagCreated       PointReason = "tag_created"
	ReasonBlogPost         PointReason = "blog_post"
	ReasonConverterPenalty PointReason = "converter_penalty"
)

// TransactionType 交易类型枚举
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// PointTransaction 积分流水，每次余额变动一条
type PointTransaction struct {
	BaseModel
	AccountID    int64           `gorm:"not null;index:idx_point_transactions_account" json:"account_id"`
	Type         TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	Reason       PointReason     `gorm:"type:varchar(32);not null" json:"reason"`
	Amount       int64           `gorm:"not null" json:"amount"`
	BalanceAfter int64           `gorm:"not null" json:"balance_after"`
}

// TableName 指定表名
func (PointTransaction) TableName() string {
	return "point_transactions"
}
