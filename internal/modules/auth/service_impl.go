package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
	"github.com/georgemunganga/marketplace-api/internal/platform/mailer"
)

const (
	msgInvalidRecoveryToken = "Token de recuperação inválido ou expirado."
	msgEmptyPassword        = "A senha não pode ser vazia."
	recoverySubject         = "Recuperação de senha"
)

// RecoveryConfig sets the lifetime of recovery tokens and the front-end base
// URL embedded in recovery links.
type RecoveryConfig struct {
	TTL          time.Duration
	BaseURLFront string
}

type service struct {
	accounts AccountRepository
	tokens   RecoveryTokenRepository
	hasher   *Hasher
	issuer   *TokenIssuer
	mail     mailer.Sender
	cfg      RecoveryConfig
	now      func() time.Time
	dispatch func(func())
}

// NewService creates a new auth service. Recovery e-mails are delivered on
// their own goroutine.
func NewService(accounts AccountRepository, tokens RecoveryTokenRepository, hasher *Hasher, issuer *TokenIssuer, mail mailer.Sender, cfg RecoveryConfig) Service {
	return &service{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		mail:     mail,
		cfg:      cfg,
		now:      time.Now,
		dispatch: func(fn func()) { go fn() },
	}
}

// NormalizeEmail is the canonical form e-mails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*Token, error) {
	acc, err := s.accounts.GetActiveAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}

	ok, legacy := s.hasher.Verify(acc.PasswordHash, password)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if legacy {
		s.upgradeHash(ctx, acc, password)
	}

	tok, err := s.issuer.Issue(acc)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return tok, nil
}

// upgradeHash replaces a legacy digest with bcrypt. Failure keeps the legacy
// hash and does not fail the login.
func (s *service) upgradeHash(ctx context.Context, acc *Account, password string) {
	log := logger.From(ctx)
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePasswordHash(ctx, acc.ID, hash, s.now())
	}
	if err != nil {
		log.Warn("legacy password hash not upgraded", zap.Int64("user_id", acc.ID), zap.Error(err))
		return
	}
	log.Info("legacy password hash upgraded", zap.Int64("user_id", acc.ID))
}

func (s *service) SendRecoveryEmail(ctx context.Context, email string) (bool, error) {
	acc, err := s.accounts.GetActiveAccountByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Unexpected(err)
	}

	raw, err := newRecoveryToken()
	if err != nil {
		return false, apperr.Unexpected(err)
	}
	now := s.now()
	rec := &RecoveryToken{
		TokenHash:    digest(raw),
		UserID:       acc.ID,
		ExpiresAt:    now.Add(s.cfg.TTL),
		CreationDate: now,
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return false, apperr.Unexpected(err)
	}

	link := s.recoveryLink(raw)
	to := acc.Email
	log := logger.From(ctx).With(zap.Int64("user_id", acc.ID))
	s.dispatch(func() {
		if err := s.mail.Send(to, recoverySubject, recoveryHTML(link), recoveryText(link)); err != nil {
			log.Error("recovery email not delivered", zap.Error(err))
		}
	})
	return true, nil
}

func (s *service) CheckRecoveryToken(ctx context.Context, token string) (bool, error) {
	rec, err := s.lookup(ctx, token)
	if err != nil || rec == nil {
		return false, err
	}
	return rec.Usable(s.now()), nil
}

func (s *service) ConsumeRecoveryToken(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperr.Invalid(msgEmptyPassword)
	}
	usable, err := s.CheckRecoveryToken(ctx, token)
	if err != nil {
		return err
	}
	if !usable {
		return apperr.InvalidToken(msgInvalidRecoveryToken)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Unexpected(err)
	}
	userID, err := s.tokens.Consume(ctx, digest(token), hash, s.now())
	if errors.Is(err, ErrNotFound) {
		// lost a race with another consumer or the token expired meanwhile
		return apperr.InvalidToken(msgInvalidRecoveryToken)
	}
	if err != nil {
		return apperr.Unexpected(err)
	}
	logger.From(ctx).Info("password recovered", zap.Int64("user_id", userID))
	return nil
}

// lookup returns nil, nil when no row matches token.
func (s *service) lookup(ctx context.Context, token string) (*RecoveryToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	want := digest(token)
	rec, err := s.tokens.GetByHash(ctx, want)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(want)) != 1 {
		return nil, nil
	}
	return rec, nil
}

func (s *service) recoveryLink(token string) string {
	base := strings.TrimRight(s.cfg.BaseURLFront, "/")
	return fmt.Sprintf("%s/recover/password?token=%s", base, url.QueryEscape(token))
}

func newRecoveryToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate recovery token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func recoveryText(link string) string {
	return "Recebemos uma solicitação para redefinir sua senha.\n\n" +
		"Acesse o link abaixo para cadastrar uma nova senha:\n" + link + "\n\n" +
		"Se você não fez esta solicitação, ignore este e-mail."
}

func recoveryHTML(link string) string {
	return `<p>Recebemos uma solicitação para redefinir sua senha.</p>` +
		`<p><a href="` + link + `">Clique aqui para cadastrar uma nova senha</a></p>` +
		`<p>Se você não fez esta solicitação, ignore este e-mail.</p>`
}
