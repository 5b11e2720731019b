package dto

import "github.com/yourusername/livequiz-api/internal/domain/entity"

// QuestionStartEvent — данные события QUESTION_START
type QuestionStartEvent struct {
	SessionName     string         `json:"sessionName"`
	CurrentQuestion int            `json:"currentQuestion"`
	QuestionID      string         `json:"questionId"`
	Fields          QuestionFields `json:"fields"`
}

// QuizEndEvent — данные события QUIZ_END
type QuizEndEvent struct {
	SessionName     string `json:"sessionName"`
	CurrentQuestion int    `json:"currentQuestion"`
}

// VoteRecordedEvent — данные события VOTE_RECORDED. Имя голосующего не раскрывается.
type VoteRecordedEvent struct {
	SessionName    string `json:"sessionName"`
	QuestionID     string `json:"questionId"`
	QuestionNumber int    `json:"questionNumber,omitempty"`
	Answer         string `json:"answer"`
}

// NewQuestionStartEvent создает событие о показе вопроса
func NewQuestionStartEvent(active *entity.ActiveQuestion) QuestionStartEvent {
	return QuestionStartEvent{
		SessionName:     active.Session.Name,
		CurrentQuestion: active.Session.CurrentQuestion,
		QuestionID:      active.Question.ID,
		Fields:          NewQuestionFields(active.Question),
	}
}
