package airtable

import (
	"time"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/pkg/airtable"
)

// Имена полей в таблицах хранилища
const (
	FieldQuestionNumber = "Question Number"
	FieldQuestionText   = "Question"
	FieldAnswer1        = "Answer 1"
	FieldAnswer2        = "Answer 2"
	FieldAnswer3        = "Answer 3"
	FieldAnswer4        = "Answer 4"
	FieldCorrectAnswer  = "Correct Answer"
	FieldActiveQuestion = "Active Question"

	FieldSessionName     = "Session Name"
	FieldCurrentQuestion = "Current Question"

	FieldVoterName    = "Voter Name"
	FieldVoteQuestion = "Question"
	FieldVote         = "Vote"
)

type questionFields struct {
	Number        int                 `json:"Question Number"`
	Text          string              `json:"Question"`
	Answer1       string              `json:"Answer 1"`
	Answer2       string              `json:"Answer 2"`
	Answer3       string              `json:"Answer 3"`
	Answer4       string              `json:"Answer 4"`
	CorrectAnswer airtable.FlexString `json:"Correct Answer"`
	Active        bool                `json:"Active Question"`
}

type sessionFields struct {
	Name            string `json:"Session Name"`
	CurrentQuestion int    `json:"Current Question"`
}

type voteFields struct {
	VoterName string              `json:"Voter Name"`
	Question  []string            `json:"Question"`
	Vote      airtable.FlexString `json:"Vote"`
}

func parseCreatedTime(rec *airtable.Record) time.Time {
	if rec.CreatedTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, rec.CreatedTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

func questionFromRecord(rec *airtable.Record) (*entity.Question, error) {
	var f questionFields
	if err := rec.DecodeFields(&f); err != nil {
		return nil, err
	}
	created := parseCreatedTime(rec)
	return &entity.Question{
		ID:            rec.ID,
		Number:        f.Number,
		Text:          f.Text,
		Answer1:       f.Answer1,
		Answer2:       f.Answer2,
		Answer3:       f.Answer3,
		Answer4:       f.Answer4,
		CorrectAnswer: f.CorrectAnswer.String(),
		Active:        f.Active,
		CreatedAt:     created,
		UpdatedAt:     created,
	}, nil
}

func sessionFromRecord(rec *airtable.Record) (*entity.Session, error) {
	var f sessionFields
	if err := rec.DecodeFields(&f); err != nil {
		return nil, err
	}
	created := parseCreatedTime(rec)
	return &entity.Session{
		ID:              rec.ID,
		Name:            f.Name,
		CurrentQuestion: f.CurrentQuestion,
		CreatedAt:       created,
		UpdatedAt:       created,
	}, nil
}

func voteFromRecord(rec *airtable.Record) (*entity.Vote, error) {
	var f voteFields
	if err := rec.DecodeFields(&f); err != nil {
		return nil, err
	}
	vote := &entity.Vote{
		ID:        rec.ID,
		VoterName: f.VoterName,
		Answer:    f.Vote.String(),
		CreatedAt: parseCreatedTime(rec),
	}
	if len(f.Question) > 0 {
		vote.QuestionID = f.Question[0]
	}
	return vote, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
