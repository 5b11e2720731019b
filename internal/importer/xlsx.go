// Package importer загружает каталог вопросов из таблицы Excel в хранилище записей.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/livequiz-api/internal/pkg/errors"
)

// Заголовки колонок совпадают с именами полей таблицы "Quiz"
const (
	ColumnNumber   = "Question Number"
	ColumnQuestion = "Question"
	ColumnAnswer1  = "Answer 1"
	ColumnAnswer2  = "Answer 2"
	ColumnAnswer3  = "Answer 3"
	ColumnAnswer4  = "Answer 4"
	ColumnCorrect  = "Correct Answer"
)

var requiredColumns = []string{
	ColumnNumber, ColumnQuestion, ColumnAnswer1, ColumnAnswer2, ColumnAnswer3, ColumnAnswer4, ColumnCorrect,
}

// ParseQuestions читает вопросы с листа sheet (пустое имя - первый лист).
// Первая строка содержит заголовки, пустые строки пропускаются.
func ParseQuestions(r io.Reader, sheet string) ([]entity.Question, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty: %w", sheet, apperrors.ErrValidation)
	}

	index := make(map[string]int, len(rows[0]))
	for i, title := range rows[0] {
		index[strings.TrimSpace(title)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", col, apperrors.ErrValidation)
		}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seen := make(map[int]int)
	var questions []entity.Question
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}

		number, err := strconv.Atoi(cell(row, ColumnNumber))
		if err != nil || number <= 0 {
			return nil, fmt.Errorf("row %d: invalid question number %q: %w", line, cell(row, ColumnNumber), apperrors.ErrValidation)
		}
		if prev, ok := seen[number]; ok {
			return nil, fmt.Errorf("row %d: question number %d already used in row %d: %w", line, number, prev, apperrors.ErrValidation)
		}
		seen[number] = line

		correct := cell(row, ColumnCorrect)
		if _, ok := entity.ParseAnswerChoice(correct); !ok {
			return nil, fmt.Errorf("row %d: correct answer must be 1..%d, got %q: %w", line, entity.AnswerCount, correct, apperrors.ErrValidation)
		}

		questions = append(questions, entity.Question{
			Number:        number,
			Text:          cell(row, ColumnQuestion),
			Answer1:       cell(row, ColumnAnswer1),
			Answer2:       cell(row, ColumnAnswer2),
			Answer3:       cell(row, ColumnAnswer3),
			Answer4:       cell(row, ColumnAnswer4),
			CorrectAnswer: correct,
		})
	}
	return questions, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Import записывает вопросы в хранилище и возвращает количество созданных записей.
// Вопросы с уже существующим номером пропускаются.
func Import(ctx context.Context, repo repository.QuestionRepository, questions []entity.Question) (int, error) {
	created := 0
	for i := range questions {
		q := &questions[i]

		_, err := repo.GetByNumber(ctx, q.Number)
		if err == nil {
			log.WithField("number", q.Number).Warn("[Importer] Вопрос уже существует, пропускаем")
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return created, fmt.Errorf("failed to check question %d: %w", q.Number, err)
		}

		if err := repo.Create(ctx, q); err != nil {
			return created, fmt.Errorf("failed to create question %d: %w", q.Number, err)
		}
		created++
	}
	return created, nil
}
