package game

import (
	"errors"
	"math/rand"
)

// Move — ход игрока в камень-ножницы-бумага
type Move string

const (
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"
)

var ErrInvalidMove = errors.New("invalid move")

var allMoves = [3]Move{MoveRock, MovePaper, MoveScissors}

// ParseMove проверяет и возвращает канонический ход
func ParseMove(s string) (Move, error) {
	switch Move(s) {
	case MoveRock, MovePaper, MoveScissors:
		return Move(s), nil
	}
	return "", ErrInvalidMove
}

// Outcome — результат одного раунда
type Outcome int

const (
	OutcomeDraw Outcome = iota
	OutcomePlayer1
	OutcomePlayer2
)

// beats[a] возвращает ход, который a побеждает
var beats = map[Move]Move{
	MoveRock:     MoveScissors,
	MoveScissors: MovePaper,
	MovePaper:    MoveRock,
}

// Resolve определяет победителя раунда: камень бьет ножницы,
// ножницы бьют бумагу, бумага бьет камень, одинаковые ходы - ничья
func Resolve(m1, m2 Move) Outcome {
	if m1 == m2 {
		return OutcomeDraw
	}
	if beats[m1] == m2 {
		return OutcomePlayer1
	}
	return OutcomePlayer2
}

// RandomMove возвращает случайный ход (бот ходит за игрока при таймауте)
func RandomMove() Move {
	return allMoves[rand.Intn(len(allMoves))]
}

// RandomDistinctMoves возвращает два гарантированно разных хода,
// чтобы двойной таймаут никогда не завершался ничьей
func RandomDistinctMoves() (Move, Move) {
	i := rand.Intn(len(allMoves))
	j := (i + 1 + rand.Intn(len(allMoves)-1)) % len(allMoves)
	return allMoves[i], allMoves[j]
}
