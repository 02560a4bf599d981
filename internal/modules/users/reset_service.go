package users

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Muhsin-Gun/event-API/internal/auth"
	"github.com/Muhsin-Gun/event-API/internal/mailer"
)

var ErrResetTokenInvalid = errors.New("invalid, expired, or already used token")

// ResetService issues and consumes single-use password-reset tokens. Tokens
// are signed JWTs, but possession of a valid signature is not enough: the
// token's hash must still be unconsumed in password_resets. That keeps
// single-use semantics across restarts and across multiple instances.
type ResetService struct {
	db     *gorm.DB
	repo   *Repo
	tokens *auth.Tokens
	mail   mailer.Service
	logger *slog.Logger

	frontendURL string
	fromAddr    string
	fromName    string
	tokenTTL    time.Duration
}

type ResetConfig struct {
	FrontendURL string
	FromAddr    string
	FromName    string
	TokenTTL    time.Duration
}

func NewResetService(db *gorm.DB, repo *Repo, tokens *auth.Tokens, mail mailer.Service, logger *slog.Logger, cfg ResetConfig) *ResetService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ResetService{
		db:          db,
		repo:        repo,
		tokens:      tokens,
		mail:        mail,
		logger:      logger,
		frontendURL: cfg.FrontendURL,
		fromAddr:    cfg.FromAddr,
		fromName:    cfg.FromName,
		tokenTTL:    ttl,
	}
}

// Start issues a reset token for the account behind email, if one exists.
// The caller-facing response never reveals whether it did.
func (s *ResetService) Start(ctx context.Context, email string) (resetLink string, err error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	token, err := s.tokens.SignReset(u.ID)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256([]byte(token))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One live token per user; a new request invalidates older ones.
		if err := tx.Where("user_id = ?", u.ID).Delete(&PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(&PasswordReset{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			TokenHash: hash[:],
			ExpiresAt: time.Now().Add(s.tokenTTL),
			CreatedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return "", err
	}

	link := strings.TrimRight(s.frontendURL, "/") + "/reset-password?token=" + token

	if s.mail != nil {
		e := mailer.Email{
			From:     s.fromAddr,
			FromName: s.fromName,
			To:       []string{u.Email},
			Subject:  "Reset your password",
			TextBody: "Reset your password using this link: " + link,
			HTMLBody: `<p><a href="` + link + `">Click here to reset your password</a></p><p>The link expires shortly and can be used once.</p>`,
		}
		if err := s.mail.Send(ctx, e); err != nil {
			// The link still works; mail delivery is best effort here.
			s.logger.WarnContext(ctx, "reset email delivery failed", "user_id", u.ID, "err", err)
		}
	}

	return link, nil
}

// Complete consumes a token and sets the new password. Consumption is a
// conditional update on used_at so concurrent attempts burn the token once.
func (s *ResetService) Complete(ctx context.Context, token, newPassword string) error {
	userID, err := s.tokens.VerifyReset(token)
	if err != nil {
		return ErrResetTokenInvalid
	}

	hash := sha256.Sum256([]byte(token))
	now := time.Now()

	res := s.db.WithContext(ctx).Model(&PasswordReset{}).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", hash[:], now).
		Update("used_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrResetTokenInvalid
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 10)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, userID, string(pwHash))
}
