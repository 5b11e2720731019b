package entity

import (
	"strconv"
	"time"
)

// AnswerCount — количество вариантов ответа у каждого вопроса
const AnswerCount = 4

// Question представляет вопрос викторины из таблицы "Quiz"
type Question struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Number        int       `gorm:"not null;uniqueIndex" json:"question_number"`
	Text          string    `gorm:"size:500;not null" json:"question"`
	Answer1       string    `gorm:"column:answer1;size:255;not null;default:''" json:"answer_1"`
	Answer2       string    `gorm:"column:answer2;size:255;not null;default:''" json:"answer_2"`
	Answer3       string    `gorm:"column:answer3;size:255;not null;default:''" json:"answer_3"`
	Answer4       string    `gorm:"column:answer4;size:255;not null;default:''" json:"answer_4"`
	CorrectAnswer string    `gorm:"size:50;not null;default:''" json:"correct_answer"`
	Active        bool      `gorm:"not null;default:false;index" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// Answers возвращает тексты вариантов ответа по порядку (1..4)
func (q *Question) Answers() [AnswerCount]string {
	return [AnswerCount]string{q.Answer1, q.Answer2, q.Answer3, q.Answer4}
}

// AnswerText возвращает текст варианта с номером n (1-based)
func (q *Question) AnswerText(n int) string {
	if n < 1 || n > AnswerCount {
		return ""
	}
	return q.Answers()[n-1]
}

// IsCorrect проверяет, совпадает ли выбранный вариант с правильным
func (q *Question) IsCorrect(choice string) bool {
	return q.CorrectAnswer != "" && q.CorrectAnswer == choice
}

// ParseAnswerChoice приводит ответ к номеру варианта 1..4.
// Второе значение false, если ответ не распознан.
func ParseAnswerChoice(choice string) (int, bool) {
	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > AnswerCount {
		return 0, false
	}
	return n, true
}
