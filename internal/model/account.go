package model

// Account 用户账户，积分余额与冻结卡数量都挂在这里
type Account struct {
	BaseModel
	PublicID       int64   `gorm:"uniqueIndex;not null" json:"public_id,string"`
	Username       string  `gorm:"uniqueIndex;type:varchar(25);not null" json:"username"`
	PasswordHash   string  `gorm:"type:varchar(128);not null;default:''" json:"-"` // 外部登录创建的账户为空
	Email          *string `gorm:"uniqueIndex;type:varchar(250)" json:"email,omitempty"`
	Points         int64   `gorm:"not null;default:0;check:chk_accounts_points_non_negative,points >= 0" json:"points"`
	TriviaFreezers int     `gorm:"not null;default:0;check:chk_accounts_freezers_non_negative,trivia_freezers >= 0" json:"trivia_freezers"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

func (a *Account) HasEmail() bool {
	return a.Email != nil && *a.Email != ""
}

// HasPassword 仅本地注册的账户可以用密码登录
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}
