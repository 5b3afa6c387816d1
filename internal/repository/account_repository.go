package repository

import (
	"context"

	"github.com/honeynil/auth-service/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUsernameOrEmail(ctx context.Context, text string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error
}
