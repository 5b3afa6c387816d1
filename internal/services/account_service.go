package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	stderrors "errors"

	"github.com/honeynil/auth-service/internal/auth"
	"github.com/honeynil/auth-service/internal/infrastructure/kafka"
	"github.com/honeynil/auth-service/internal/infrastructure/redis"
	"github.com/honeynil/auth-service/internal/models"
	"github.com/honeynil/auth-service/internal/repository"
	pkgerrors "github.com/honeynil/auth-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const (
	verifyDataPrefix  = "verify:email:data:"
	verifyLimitPrefix = "verify:email:limit:"

	verifyCodeTTL  = 3 * time.Minute
	verifyLimitTTL = time.Minute

	mailTopic = "mail"
)

// LoginResult is what the login handler returns to the client: the
// signed token plus the metadata needed to use it.
type LoginResult struct {
	Username string
	Role     string
	Token    string
	Expire   time.Time
}

type AccountService interface {
	Login(ctx context.Context, text, password string) (*LoginResult, error)
	Logout(ctx context.Context, headerToken string) error
	AskVerifyCode(ctx context.Context, typ, email, ip string) error
	Register(ctx context.Context, email, code, username, password string) error
	ResetConfirm(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, password string) error
}

type accountService struct {
	accountRepo  repository.AccountRepository
	redisClient  redis.RedisClient
	mailProducer kafka.KafkaProducer
	tokens       *auth.TokenManager
	revocations  *auth.RevocationManager
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	redisClient redis.RedisClient,
	mailProducer kafka.KafkaProducer,
	tokens *auth.TokenManager,
	revocations *auth.RevocationManager,
) *accountService {
	return &accountService{
		accountRepo:  accountRepo,
		redisClient:  redisClient,
		mailProducer: mailProducer,
		tokens:       tokens,
		revocations:  revocations,
	}
}

func (s *accountService) Login(ctx context.Context, text, password string) (*LoginResult, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	account, err := s.accountRepo.GetByUsernameOrEmail(ctx, text)
	if err != nil {
		slog.Error("failed to login", "text", text, "error", err)
		span.SetStatus(codes.Error, "account lookup failed")
		return nil, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		slog.Error("invalid password", "username", account.Username)
		span.SetStatus(codes.Error, "invalid password")
		return nil, pkgerrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Create(account.Username, account.ID, account.Authorities())
	if err != nil {
		slog.Error("failed to generate JWT", "error", err)
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	slog.Info("user logged in", "username", account.Username, "account_id", account.ID)
	return &LoginResult{
		Username: account.Username,
		Role:     account.Role,
		Token:    token,
		Expire:   s.tokens.ExpiresAt(time.Now()),
	}, nil
}

// Logout revokes the presented bearer token for its remaining lifetime.
// A malformed or already-revoked token is reported as a distinct
// failure rather than silently accepted.
func (s *accountService) Logout(ctx context.Context, headerToken string) error {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	tokenStr, ok := auth.ConvertToken(headerToken)
	if !ok {
		span.SetStatus(codes.Error, "no bearer token")
		return pkgerrors.ErrLogoutFailed
	}

	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		slog.Warn("logout with invalid token", "error", err)
		span.SetStatus(codes.Error, "invalid token")
		return pkgerrors.ErrLogoutFailed
	}

	revoked, err := s.revocations.Revoke(ctx, claims.Identifier(), claims.ExpiresAt.Time)
	if err != nil {
		slog.Error("failed to revoke token", "jti", claims.Identifier(), "error", err)
		span.RecordError(err)
		return fmt.Errorf("%w: revocation store unavailable", pkgerrors.ErrInternal)
	}
	if !revoked {
		span.SetStatus(codes.Error, "already revoked")
		return pkgerrors.ErrLogoutFailed
	}

	slog.Info("token revoked", "jti", claims.Identifier(), "username", claims.Name)
	return nil
}

func (s *accountService) AskVerifyCode(ctx context.Context, typ, email, ip string) error {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "AskVerifyCode")
	defer span.End()

	if typ != models.MailTypeRegister && typ != models.MailTypeReset {
		span.SetStatus(codes.Error, "unknown code type")
		return fmt.Errorf("%w: unknown verify code type %q", pkgerrors.ErrInvalidInput, typ)
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", pkgerrors.ErrInvalidInput)
	}

	limited, err := s.redisClient.Exists(ctx, verifyLimitPrefix+email)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: verify code store unavailable", pkgerrors.ErrInternal)
	}
	if limited {
		slog.Warn("verify code requested too frequently", "email", email, "ip", ip)
		span.SetStatus(codes.Error, "rate limited")
		return pkgerrors.ErrCodeRequestLimit
	}

	exists, err := s.accountRepo.ExistsByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to check email", pkgerrors.ErrInternal)
	}
	if typ == models.MailTypeRegister && exists {
		span.SetStatus(codes.Error, "email taken")
		return pkgerrors.ErrEmailExists
	}
	if typ == models.MailTypeReset && !exists {
		span.SetStatus(codes.Error, "no such account")
		return pkgerrors.ErrAccountNotFound
	}

	code, err := randomCode()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to generate code", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Set(ctx, verifyDataPrefix+email, fmt.Sprintf("%06d", code), verifyCodeTTL); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to store code", pkgerrors.ErrInternal)
	}
	if err := s.redisClient.Set(ctx, verifyLimitPrefix+email, "", verifyLimitTTL); err != nil {
		slog.Error("failed to set code request limit", "email", email, "error", err)
	}

	event := models.MailEvent{Email: email, Code: code, Type: typ}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to marshal mail event", pkgerrors.ErrInternal)
	}
	if err := s.mailProducer.Send(ctx, mailTopic, email, eventBytes); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to queue mail", pkgerrors.ErrInternal)
	}

	slog.Info("verify code issued", "email", email, "type", typ, "ip", ip)
	return nil
}

func (s *accountService) Register(ctx context.Context, email, code, username, password string) error {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if email == "" || code == "" || username == "" || password == "" {
		span.SetStatus(codes.Error, "missing fields")
		return pkgerrors.ErrInvalidInput
	}

	if err := s.checkVerifyCode(ctx, email, code); err != nil {
		span.SetStatus(codes.Error, "code check failed")
		return err
	}

	taken, err := s.accountRepo.ExistsByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to check username", pkgerrors.ErrInternal)
	}
	if taken {
		span.SetStatus(codes.Error, "username taken")
		return pkgerrors.ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to hash password", "username", username, "error", err)
		return fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if stderrors.Is(err, pkgerrors.ErrUsernameExists) || stderrors.Is(err, pkgerrors.ErrEmailExists) {
			return err
		}
		span.RecordError(err)
		slog.Error("failed to create account", "username", username, "error", err)
		return fmt.Errorf("%w: failed to create account", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Del(ctx, verifyDataPrefix+email); err != nil {
		slog.Error("failed to delete used verify code", "email", email, "error", err)
	}

	slog.Info("account registered", "account_id", account.ID, "username", username)
	return nil
}

func (s *accountService) ResetConfirm(ctx context.Context, email, code string) error {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "ResetConfirm")
	defer span.End()

	if err := s.checkVerifyCode(ctx, email, code); err != nil {
		span.SetStatus(codes.Error, "code check failed")
		return err
	}
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, email, code, password string) error {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "ResetPassword")
	defer span.End()

	if password == "" {
		return fmt.Errorf("%w: password is required", pkgerrors.ErrInvalidInput)
	}
	if err := s.checkVerifyCode(ctx, email, code); err != nil {
		span.SetStatus(codes.Error, "code check failed")
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	if err := s.accountRepo.UpdatePasswordByEmail(ctx, email, string(hash)); err != nil {
		if stderrors.Is(err, pkgerrors.ErrAccountNotFound) {
			return err
		}
		span.RecordError(err)
		slog.Error("failed to update password", "email", email, "error", err)
		return fmt.Errorf("%w: failed to update password", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Del(ctx, verifyDataPrefix+email); err != nil {
		slog.Error("failed to delete used verify code", "email", email, "error", err)
	}

	slog.Info("password reset", "email", email)
	return nil
}

func (s *accountService) checkVerifyCode(ctx context.Context, email, code string) error {
	stored, err := s.redisClient.Get(ctx, verifyDataPrefix+email)
	if stderrors.Is(err, redis.ErrKeyNotFound) {
		return pkgerrors.ErrInvalidVerifyCode
	}
	if err != nil {
		return fmt.Errorf("%w: verify code store unavailable", pkgerrors.ErrInternal)
	}
	if stored != code {
		return pkgerrors.ErrInvalidVerifyCode
	}
	return nil
}

func randomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 100000, nil
}
