package kafka

import (
	"testing"

	"github.com/honeynil/auth-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderMessage(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		subject, body, ok := renderMessage(models.MailEvent{
			Email: "a@b.c",
			Code:  123456,
			Type:  models.MailTypeRegister,
		})
		assert.True(t, ok)
		assert.NotEmpty(t, subject)
		assert.Contains(t, body, "123456")
	})

	t.Run("reset pads short codes", func(t *testing.T) {
		_, body, ok := renderMessage(models.MailEvent{
			Email: "a@b.c",
			Code:  123,
			Type:  models.MailTypeReset,
		})
		assert.True(t, ok)
		assert.Contains(t, body, "000123")
	})

	t.Run("unknown type is skipped", func(t *testing.T) {
		_, _, ok := renderMessage(models.MailEvent{Type: "promote"})
		assert.False(t, ok)
	})
}
