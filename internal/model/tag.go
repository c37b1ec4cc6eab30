package model

const TagNameMaxLen = 100

// Tag 任务标签，同一账户下名称唯一
type Tag struct {
	HardModel
	AccountID int64  `gorm:"not null;uniqueIndex:uq_tags_account_name" json:"-"`
	Name      string `gorm:"type:varchar(100);not null;uniqueIndex:uq_tags_account_name" json:"name"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}
