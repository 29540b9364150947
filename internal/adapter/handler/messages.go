package handler

import (
	"errors"
	"fmt"

	"github.com/rl1809/bloodbank/internal/core/domain"
)

const helpText = "Comandos válidos:\n" +
	"'comandos' : Lista todos os comandos válidos do sistema;\n" +
	"'listar tudo' : Lista todos os dados do sistema;\n" +
	"'listar tipos' : Lista os tipos sanguíneos e a prevalência de cada tipo de sangue na população;\n" +
	"'listar estoque' : lista a quantidade de sangue armazenada nesta unidade de coleta de sangue;\n" +
	"'listar compatibilidade' : Lista quais tipos sanguíneos podem doar e receber sangue de outros tipos sanguíneos;\n" +
	"'adicionar TIPO, VALOR' : Adiciona a quantidade VALOR de litros de sangue do tipo sanguíneo TIPO no banco de dados;\n" +
	"'remover TIPO, VALOR' : remove a quantidade VALOR de litros de sangue do tipo sanguíneo TIPO no banco de dados; e\n" +
	"'desconectar' : encerra a conexão com o servidor.\n" +
	"Os valores válidos para TIPO são: O+, O-, A+, A-, B+, B-, AB+, AB-\n"

const (
	msgGreeting          = "Olá, você é o cliente #%d."
	msgQueryFailed       = "Não foi possível executar esta consulta."
	msgAdjustFailed      = "Não foi possível completar a operação."
	msgInsufficientStock = "Não foi possível completar a operação. Provavelmente o valor a ser removido é maior do que o estoque para este tipo sanguíneo no banco de dados."
	msgNonPositiveValue  = "O valor precisa ser maior que 0."
	msgInvalidValue      = "O valor informado é inválido."
	msgUnknownType       = "Tipo de sangue não reconhecido. Digite 'comandos' para ver os tipos válidos."
	msgMissingComma      = "Aparentemente a vírgula está faltando. Padrão: 'adicionar/remover TIPO, VALOR'."
	msgUnknownCommand    = "Comando não reconhecido. Digite 'comandos' para ver os comandos válidos."
)

func greeting(session int) string {
	return fmt.Sprintf(msgGreeting, session) + "\n" + helpText
}

// adjustedMessage confirms an applied adjustment. Amounts of 2 liters or more
// take the plural forms.
func adjustedMessage(direction domain.Direction, t domain.BloodType, amount float64) string {
	plural := amount >= 2

	var verb, unit string
	switch {
	case direction == domain.DirectionAdd && plural:
		verb, unit = "Foram adicionados", "litros"
	case direction == domain.DirectionAdd:
		verb, unit = "Foi adicionado", "litro"
	case plural:
		verb, unit = "Foram removidos", "litros"
	default:
		verb, unit = "Foi removido", "litro"
	}

	return fmt.Sprintf("%s %s %s de sangue do tipo %s no banco de dados.", verb, domain.FormatLiters(amount), unit, t)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingComma):
		return msgMissingComma
	case errors.Is(err, ErrUnknownType):
		return msgUnknownType
	case errors.Is(err, ErrInvalidValue):
		return msgInvalidValue
	case errors.Is(err, ErrNonPositiveValue):
		return msgNonPositiveValue
	default:
		return msgUnknownCommand
	}
}
