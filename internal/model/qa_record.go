package model

import "time"

type QARecord struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID     uint      `gorm:"not null;index:idx_qa_user_id" json:"user_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:mediumtext;not null" json:"answer"`
	References []string  `gorm:"type:text;serializer:json" json:"references"`
	CreatedAt  time.Time `json:"timestamp"`
}

func (QARecord) TableName() string {
	return "qa_records"
}
