package model

import "time"

// ConverterQuestion 解锁某类单位换算器需要回答的题目
type ConverterQuestion struct {
	Type     string `json:"type"`
	Question string `json:"question"`
	Answer   string `json:"-"`
}

// ConverterQuestions 题目顺序即展示顺序
var ConverterQuestions = []ConverterQuestion{
	{Type: "distance", Question: "What is 1.2 kilometer in meters?", Answer: "1200"},
	{Type: "temperature", Question: "What is 100 degrees Celsius in Fahrenheit?", Answer: "212"},
	{Type: "weight", Question: "What is 500 grams in kilograms?", Answer: "0.5"},
	{Type: "volume", Question: "What is 2 liters in milliliters?", Answer: "2000"},
	{Type: "time", Question: "What is 7200 seconds in hours?", Answer: "2"},
	{Type: "speed", Question: "What is 90 kilometers per hour in meters per second?", Answer: "25"},
	{Type: "area", Question: "What is 100 square meters in square feet?", Answer: "1076.39"},
	{Type: "pressure", Question: "What is 101325 pascals in atmospheres?", Answer: "1"},
	{Type: "energy", Question: "What is 1000 joules in kilojoules?", Answer: "1"},
	{Type: "power", Question: "What is 1000 watts in kilowatts?", Answer: "1"},
}

// LookupConverterQuestion 按类型查题目
func LookupConverterQuestion(converterType string) (ConverterQuestion, bool) {
	for _, q := range ConverterQuestions {
		if q.Type == converterType {
			return q, true
		}
	}
	return ConverterQuestion{}, false
}

// ConverterUnlock 账户已解锁的换算器类型
type ConverterUnlock struct {
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID     int64     `gorm:"not null;uniqueIndex:uq_converter_unlocks_account_type" json:"-"`
	ConverterType string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_converter_unlocks_account_type" json:"converter_type"`
}

// TableName 指定表名
func (ConverterUnlock) TableName() string {
	return "converter_unlocks"
}
