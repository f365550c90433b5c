package mapper

import (
	accountdomain "github.com/AlibekovAA/member-chat/internal/account/domain"
	chatdomain "github.com/AlibekovAA/member-chat/internal/chat/domain"
	"github.com/AlibekovAA/member-chat/internal/common/dto"
)

func AccountToDTO(account accountdomain.Account) dto.Account {
	return dto.Account{
		ID:        string(account.ID),
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

func MessageToDTO(msg chatdomain.MessageWithAuthor) dto.Message {
	return dto.Message{
		ID:        msg.ID,
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
		Author:    AccountToDTO(msg.Author),
	}
}

func MessagesToDTO(msgs []chatdomain.MessageWithAuthor) []dto.Message {
	result := make([]dto.Message, len(msgs))
	for i, m := range msgs {
		result[i] = MessageToDTO(m)
	}
	return result
}
