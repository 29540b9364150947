package handler

import (
	"errors"
	"testing"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

func TestParseCommand_Literals(t *testing.T) {
	cases := map[string]CommandKind{
		"comandos":               CommandHelp,
		"listar tudo":            CommandListAll,
		"listar tipos":           CommandListTypes,
		"listar estoque":         CommandListStock,
		"listar compatibilidade": CommandListCompatibility,
		"desconectar":            CommandDisconnect,
	}
	for line, want := range cases {
		if got := ParseCommand(line).Kind; got != want {
			t.Errorf("%q: expected kind %d, got %d", line, want, got)
		}
	}
}

func TestParseCommand_Adjust(t *testing.T) {
	cases := []struct {
		line      string
		direction domain.Direction
		bloodType domain.BloodType
		amount    float64
	}{
		{"adicionar O+, 2", domain.DirectionAdd, domain.OPositive, 2},
		{"remover AB-, 0.25", domain.DirectionRemove, domain.ABNegative, 0.25},
		{"ADICIONAR A-, 1.5", domain.DirectionAdd, domain.ANegative, 1.5},
		{"Remover B+, 3", domain.DirectionRemove, domain.BPositive, 3},
		{"adicionar O-, 4 ", domain.DirectionAdd, domain.ONegative, 4},
		{"adicionar AB+, 1e1", domain.DirectionAdd, domain.ABPositive, 10},
	}
	for _, c := range cases {
		cmd := ParseCommand(c.line)
		if cmd.Kind != CommandAdjust {
			t.Errorf("%q: expected adjust, got kind %d (err %v)", c.line, cmd.Kind, cmd.Err)
			continue
		}
		if cmd.Direction != c.direction || cmd.Type != c.bloodType || cmd.Amount != c.amount {
			t.Errorf("%q: expected %s %s %v, got %s %s %v", c.line, c.direction, c.bloodType, c.amount, cmd.Direction, cmd.Type, cmd.Amount)
		}
	}
}

func TestParseCommand_Errors(t *testing.T) {
	cases := []struct {
		line string
		want error
	}{
		{"", ErrUnknownCommand},
		{"   ", ErrUnknownCommand},
		{"Comandos", ErrUnknownCommand},
		{"listar", ErrUnknownCommand},
		{"somar O+, 2", ErrUnknownCommand},
		{"adicionar O+,2", ErrUnknownCommand},
		{"adicionar  O+, 2", ErrUnknownCommand},
		{"adicionar O+, 2, 3", ErrUnknownCommand},
		{"adicionar O+ 2", ErrMissingComma},
		{"remover AB- 1", ErrMissingComma},
		{"adicionar C+, 2", ErrUnknownType},
		{"adicionar o+, 2", ErrUnknownType},
		{"adicionar ,, 2", ErrUnknownType},
		{"adicionar O+, abc", ErrInvalidValue},
		{"adicionar O+, NaN", ErrInvalidValue},
		{"adicionar O+, Inf", ErrInvalidValue},
		{"adicionar O+, 2,5", ErrInvalidValue},
		{"adicionar O+, 0", ErrNonPositiveValue},
		{"remover O+, -3", ErrNonPositiveValue},
	}
	for _, c := range cases {
		cmd := ParseCommand(c.line)
		if cmd.Kind != CommandUnrecognized {
			t.Errorf("%q: expected unrecognized, got kind %d", c.line, cmd.Kind)
			continue
		}
		if !errors.Is(cmd.Err, c.want) {
			t.Errorf("%q: expected %v, got %v", c.line, c.want, cmd.Err)
		}
	}
}

func TestValidationMessage(t *testing.T) {
	cases := map[error]string{
		ErrMissingComma:     msgMissingComma,
		ErrUnknownType:      msgUnknownType,
		ErrInvalidValue:     msgInvalidValue,
		ErrNonPositiveValue: msgNonPositiveValue,
		ErrUnknownCommand:   msgUnknownCommand,
		ErrLineTooLong:      msgUnknownCommand,
	}
	for err, want := range cases {
		if got := validationMessage(err); got != want {
			t.Errorf("%v: expected %q, got %q", err, want, got)
		}
	}
}

func TestAdjustedMessage(t *testing.T) {
	cases := []struct {
		direction domain.Direction
		bloodType domain.BloodType
		amount    float64
		want      string
	}{
		{domain.DirectionAdd, domain.OPositive, 2, "Foram adicionados 2.0 litros de sangue do tipo O+ no banco de dados."},
		{domain.DirectionAdd, domain.ANegative, 1.5, "Foi adicionado 1.5 litro de sangue do tipo A- no banco de dados."},
		{domain.DirectionRemove, domain.ABPositive, 2.5, "Foram removidos 2.5 litros de sangue do tipo AB+ no banco de dados."},
		{domain.DirectionRemove, domain.ABNegative, 0.25, "Foi removido 0.25 litro de sangue do tipo AB- no banco de dados."},
	}
	for _, c := range cases {
		if got := adjustedMessage(c.direction, c.bloodType, c.amount); got != c.want {
			t.Errorf("expected %q, got %q", c.want, got)
		}
	}
}
