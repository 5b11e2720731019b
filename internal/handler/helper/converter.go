package helper

import (
	"strconv"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// AnswerOption представляет вариант ответа для экспорта и фронтенда
type AnswerOption struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// ConvertAnswersToMap преобразует варианты вопроса в карту {"1": текст, ..., "4": текст}
func ConvertAnswersToMap(q *entity.Question) map[string]string {
	answers := q.Answers()
	converted := make(map[string]string, len(answers))
	for i, text := range answers {
		converted[strconv.Itoa(i+1)] = text
	}
	return converted
}

// ConvertAnswersToOptions преобразует варианты вопроса в упорядоченный список.
// Номера 1-based, как и значения поля "Vote".
func ConvertAnswersToOptions(q *entity.Question) []AnswerOption {
	answers := q.Answers()
	converted := make([]AnswerOption, len(answers))
	for i, text := range answers {
		converted[i] = AnswerOption{Number: i + 1, Text: text}
	}
	return converted
}
