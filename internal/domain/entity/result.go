package entity

import "strconv"

// VoteTally хранит количество голосов по вариантам 1..4 (индекс 0 — вариант 1)
type VoteTally [AnswerCount]int

// Add учитывает голос. Нераспознанные ответы игнорируются, возвращается false.
func (t *VoteTally) Add(choice string) bool {
	n, ok := ParseAnswerChoice(choice)
	if !ok {
		return false
	}
	t[n-1]++
	return true
}

// Count возвращает количество голосов за вариант n (1-based)
func (t VoteTally) Count(n int) int {
	if n < 1 || n > AnswerCount {
		return 0
	}
	return t[n-1]
}

// Total возвращает общее количество учтённых голосов
func (t VoteTally) Total() int {
	total := 0
	for _, c := range t {
		total += c
	}
	return total
}

// AsMap возвращает подсчёт в виде {"1": n1, ..., "4": n4}
func (t VoteTally) AsMap() map[string]int {
	m := make(map[string]int, AnswerCount)
	for i, c := range t {
		m[strconv.Itoa(i+1)] = c
	}
	return m
}

// QuestionResults — итоги голосования по одному вопросу
type QuestionResults struct {
	Question *Question
	Votes    VoteTally
}
