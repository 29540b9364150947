package handler

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingComma     = errors.New("missing comma after blood type")
	ErrUnknownType      = errors.New("unknown blood type")
	ErrInvalidValue     = errors.New("invalid value")
	ErrNonPositiveValue = errors.New("value must be greater than zero")
	ErrLineTooLong      = errors.New("line too long")
)

type CommandKind int

const (
	CommandUnrecognized CommandKind = iota
	CommandHelp
	CommandListAll
	CommandListTypes
	CommandListStock
	CommandListCompatibility
	CommandDisconnect
	CommandAdjust
)

const (
	verbAdd    = "adicionar"
	verbRemove = "remover"
)

var literalCommands = map[string]CommandKind{
	"comandos":               CommandHelp,
	"listar tudo":            CommandListAll,
	"listar tipos":           CommandListTypes,
	"listar estoque":         CommandListStock,
	"listar compatibilidade": CommandListCompatibility,
	"desconectar":            CommandDisconnect,
}

// Command is one parsed client line. Direction, Type and Amount are set for
// CommandAdjust; Err is set for CommandUnrecognized.
type Command struct {
	Kind      CommandKind
	Direction domain.Direction
	Type      domain.BloodType
	Amount    float64
	Err       error
}

// ParseCommand classifies line. It never fails: malformed input comes back as
// CommandUnrecognized with Err naming the first rule the line broke.
//
// Adjustments follow "<verb> <TYPE>, <VALUE>": exactly three space separated
// tokens, the verb matched case-insensitively, the type code exactly.
func ParseCommand(line string) Command {
	if kind, ok := literalCommands[line]; ok {
		return Command{Kind: kind}
	}

	tokens := splitTokens(line)
	if len(tokens) != 3 {
		return unrecognized(ErrUnknownCommand)
	}

	var direction domain.Direction
	switch {
	case strings.EqualFold(tokens[0], verbAdd):
		direction = domain.DirectionAdd
	case strings.EqualFold(tokens[0], verbRemove):
		direction = domain.DirectionRemove
	default:
		return unrecognized(ErrUnknownCommand)
	}

	code, ok := strings.CutSuffix(tokens[1], ",")
	if !ok {
		return unrecognized(ErrMissingComma)
	}

	t, err := domain.ParseBloodType(code)
	if err != nil {
		return unrecognized(ErrUnknownType)
	}

	amount, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return unrecognized(ErrInvalidValue)
	}
	if amount <= 0 {
		return unrecognized(ErrNonPositiveValue)
	}

	return Command{
		Kind:      CommandAdjust,
		Direction: direction,
		Type:      t,
		Amount:    amount,
	}
}

func unrecognized(err error) Command {
	return Command{Kind: CommandUnrecognized, Err: err}
}

// splitTokens splits on single spaces and drops trailing empty tokens, so a
// trailing space does not change the token count.
func splitTokens(line string) []string {
	tokens := strings.Split(line, " ")
	for len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}
