package entity

import "time"

// Session представляет именованный запуск викторины.
// CurrentQuestion == 0 означает, что викторина ещё не началась.
type Session struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Name            string    `gorm:"size:100;not null;index" json:"session_name"`
	CurrentQuestion int       `gorm:"not null;default:0" json:"current_question"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Session) TableName() string {
	return "quiz_sessions"
}

// IsStarted проверяет, был ли показан хотя бы один вопрос
func (s *Session) IsStarted() bool {
	return s.CurrentQuestion > 0
}
