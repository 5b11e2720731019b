package entity

// ActiveStatus описывает положение сессии относительно каталога вопросов
type ActiveStatus string

const (
	// ActiveStatusWaiting — сессия создана, но ни один вопрос ещё не показан
	ActiveStatusWaiting ActiveStatus = "waiting"
	// ActiveStatusLive — текущему номеру сессии соответствует вопрос
	ActiveStatusLive ActiveStatus = "active"
	// ActiveStatusEnded — номер сессии вышел за пределы каталога
	ActiveStatusEnded ActiveStatus = "ended"
)

// ActiveQuestion — текущий вопрос сессии. Question заполнен только для ActiveStatusLive.
type ActiveQuestion struct {
	Status   ActiveStatus
	Session  *Session
	Question *Question
}

// IsLive проверяет, идёт ли сейчас вопрос
func (a *ActiveQuestion) IsLive() bool {
	return a != nil && a.Status == ActiveStatusLive && a.Question != nil
}
