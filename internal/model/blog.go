package model

// Post 博客留言
type Post struct {
	BaseModel
	AccountID int64     `gorm:"not null;index" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Author    Account   `gorm:"foreignKey:AccountID" json:"author"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"comments"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// Comment 博客评论
type Comment struct {
	BaseModel
	PostID    int64   `gorm:"not null;index" json:"post_id"`
	AccountID int64   `gorm:"not null" json:"-"`
	Content   string  `gorm:"type:text;not null" json:"content"`
	Author    Account `gorm:"foreignKey:AccountID" json:"author"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}
