package websocket

// Типы событий сессии викторины
const (
	// QUESTION_START сообщает о показе нового вопроса сессии
	QUESTION_START = "QUESTION_START"

	// QUIZ_END сообщает, что счетчик сессии вышел за пределы каталога
	QUIZ_END = "QUIZ_END"

	// VOTE_RECORDED сообщает о новом голосе (без имени голосующего)
	VOTE_RECORDED = "VOTE_RECORDED"
)

// Служебные типы сообщений
const (
	// SERVER_ERROR отправляется клиенту при ошибке обработки его сообщения
	SERVER_ERROR = "server:error"

	// CLIENT_PING — сообщение клиента для проверки соединения на уровне приложения
	CLIENT_PING = "ping"

	// SERVER_PONG — ответ на CLIENT_PING
	SERVER_PONG = "pong"
)
