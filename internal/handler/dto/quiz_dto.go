package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/handler/helper"
)

// Записи отдаются в том же виде, в каком их возвращает табличное хранилище:
// {"id": ..., "createdTime": ..., "fields": {...}} с исходными именами полей.

// QuestionFields — поля записи таблицы "Quiz"
type QuestionFields struct {
	QuestionNumber int    `json:"Question Number"`
	Question       string `json:"Question"`
	Answer1        string `json:"Answer 1"`
	Answer2        string `json:"Answer 2"`
	Answer3        string `json:"Answer 3"`
	Answer4        string `json:"Answer 4"`
	CorrectAnswer  string `json:"Correct Answer,omitempty"`
	ActiveQuestion bool   `json:"Active Question,omitempty"`
}

// QuestionRecord представляет вопрос в формате записи хранилища
type QuestionRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      QuestionFields `json:"fields"`
}

// SessionFields — поля записи таблицы "Session"
type SessionFields struct {
	SessionName     string `json:"Session Name"`
	CurrentQuestion int    `json:"Current Question"`
}

// SessionRecord представляет сессию в формате записи хранилища
type SessionRecord struct {
	ID          string        `json:"id"`
	CreatedTime string        `json:"createdTime,omitempty"`
	Fields      SessionFields `json:"fields"`
}

// VoteFields — поля записи таблицы "Votes"
type VoteFields struct {
	VoterName string   `json:"Voter Name"`
	Question  []string `json:"Question"`
	Vote      string   `json:"Vote"`
}

// VoteRecord представляет голос в формате записи хранилища
type VoteRecord struct {
	ID          string     `json:"id"`
	CreatedTime string     `json:"createdTime,omitempty"`
	Fields      VoteFields `json:"fields"`
}

// ActiveResponse — ответ GET /active
type ActiveResponse struct {
	Active          bool            `json:"active"`
	Waiting         bool            `json:"waiting,omitempty"`
	End             bool            `json:"end,omitempty"`
	QuestionID      string          `json:"questionId,omitempty"`
	Fields          *QuestionFields `json:"fields,omitempty"`
	SessionName     string          `json:"sessionName,omitempty"`
	CurrentQuestion int             `json:"currentQuestion,omitempty"`
}

// AdvanceSessionResponse — ответ POST /session/:sessionName/next
type AdvanceSessionResponse struct {
	Success            bool          `json:"success"`
	NewCurrentQuestion int           `json:"newCurrentQuestion"`
	UpdatedRecord      SessionRecord `json:"updatedRecord"`
}

// NextResponse — ответ POST /next. Ровно одно из полей заполнено.
type NextResponse struct {
	NewActive *QuestionRecord `json:"newActive,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// VoteResponse — ответ POST /vote
type VoteResponse struct {
	Success    bool       `json:"success"`
	VoteRecord VoteRecord `json:"voteRecord"`
}

// ResultsResponse — итоги голосования по вопросу
type ResultsResponse struct {
	QuestionNumber int               `json:"questionNumber"`
	Question       string            `json:"question"`
	Answers        map[string]string `json:"answers"`
	CorrectAnswer  string            `json:"correctAnswer"`
	Votes          map[string]int    `json:"votes"`
	TotalVotes     int               `json:"totalVotes"`
}

// CreateSessionRequest — тело POST /session
type CreateSessionRequest struct {
	SessionName string `json:"sessionName"`
}

// VoteRequest — тело POST /vote.
// Вопрос задается либо questionId (запись хранилища), либо questionNumber (режим сессий).
type VoteRequest struct {
	VoterName      string     `json:"voterName"`
	QuestionID     string     `json:"questionId"`
	QuestionNumber FlexNumber `json:"questionNumber"`
	AnswerNumber   FlexNumber `json:"answerNumber"`
	SessionName    string     `json:"sessionName"`
}

// FlexNumber принимает в JSON как число, так и строку и хранит значение в виде текста
type FlexNumber string

// UnmarshalJSON реализует json.Unmarshaler
func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexNumber(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected number or string, got %s", string(data))
	}
	*f = FlexNumber(n.String())
	return nil
}

// String возвращает текстовое значение
func (f FlexNumber) String() string {
	return string(f)
}

// Int разбирает значение как целое число. Пустое значение дает 0.
func (f FlexNumber) Int() (int, error) {
	if f == "" {
		return 0, nil
	}
	return strconv.Atoi(string(f))
}

func formatCreatedTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// NewQuestionFields создает поля записи вопроса
func NewQuestionFields(q *entity.Question) QuestionFields {
	return QuestionFields{
		QuestionNumber: q.Number,
		Question:       q.Text,
		Answer1:        q.Answer1,
		Answer2:        q.Answer2,
		Answer3:        q.Answer3,
		Answer4:        q.Answer4,
		CorrectAnswer:  q.CorrectAnswer,
		ActiveQuestion: q.Active,
	}
}

// NewQuestionRecord создает DTO для вопроса
func NewQuestionRecord(q *entity.Question) *QuestionRecord {
	if q == nil {
		return nil
	}
	return &QuestionRecord{
		ID:          q.ID,
		CreatedTime: formatCreatedTime(q.CreatedAt),
		Fields:      NewQuestionFields(q),
	}
}

// NewListQuestionRecords создает слайс DTO для каталога вопросов
func NewListQuestionRecords(questions []entity.Question) []*QuestionRecord {
	list := make([]*QuestionRecord, len(questions))
	for i := range questions {
		list[i] = NewQuestionRecord(&questions[i])
	}
	return list
}

// NewSessionRecord создает DTO для сессии
func NewSessionRecord(s *entity.Session) *SessionRecord {
	if s == nil {
		return nil
	}
	return &SessionRecord{
		ID:          s.ID,
		CreatedTime: formatCreatedTime(s.CreatedAt),
		Fields: SessionFields{
			SessionName:     s.Name,
			CurrentQuestion: s.CurrentQuestion,
		},
	}
}

// NewVoteRecord создает DTO для голоса
func NewVoteRecord(v *entity.Vote) *VoteRecord {
	if v == nil {
		return nil
	}
	return &VoteRecord{
		ID:          v.ID,
		CreatedTime: formatCreatedTime(v.CreatedAt),
		Fields: VoteFields{
			VoterName: v.VoterName,
			Question:  []string{v.QuestionID},
			Vote:      v.Answer,
		},
	}
}

// NewActiveResponse преобразует состояние сессии в ответ GET /active
func NewActiveResponse(active *entity.ActiveQuestion) *ActiveResponse {
	resp := &ActiveResponse{}
	if active == nil {
		resp.Waiting = true
		return resp
	}
	if active.Session != nil {
		resp.SessionName = active.Session.Name
		resp.CurrentQuestion = active.Session.CurrentQuestion
	}
	switch active.Status {
	case entity.ActiveStatusLive:
		fields := NewQuestionFields(active.Question)
		resp.Active = true
		resp.QuestionID = active.Question.ID
		resp.Fields = &fields
	case entity.ActiveStatusEnded:
		resp.End = true
	default:
		resp.Waiting = true
	}
	return resp
}

// NewActiveFromQuestion формирует ответ GET /active по флагу активности вопроса
func NewActiveFromQuestion(q *entity.Question) *ActiveResponse {
	if q == nil {
		return &ActiveResponse{Active: false}
	}
	fields := NewQuestionFields(q)
	return &ActiveResponse{
		Active:     true,
		QuestionID: q.ID,
		Fields:     &fields,
	}
}

// NewResultsResponse создает DTO для итогов голосования
func NewResultsResponse(results *entity.QuestionResults) *ResultsResponse {
	if results == nil || results.Question == nil {
		return nil
	}
	return &ResultsResponse{
		QuestionNumber: results.Question.Number,
		Question:       results.Question.Text,
		Answers:        helper.ConvertAnswersToMap(results.Question),
		CorrectAnswer:  results.Question.CorrectAnswer,
		Votes:          results.Votes.AsMap(),
		TotalVotes:     results.Votes.Total(),
	}
}
