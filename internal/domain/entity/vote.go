package entity

import "time"

// Vote — голос игрока за один из вариантов ответа. Записи только добавляются.
type Vote struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	VoterName  string    `gorm:"size:100;not null" json:"voter_name"`
	QuestionID string    `gorm:"size:36;not null;index" json:"question_id"`
	Answer     string    `gorm:"size:10;not null" json:"vote"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Vote) TableName() string {
	return "votes"
}
