package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// stateSubject はOAuth stateトークンの用途を示すsubクレーム。
const stateSubject = "oauth_state"

// DefaultStateTTL はstateトークンの有効期間。同意画面での操作時間を見込む。
const DefaultStateTTL = 10 * time.Minute

// ErrStateMismatch はstateトークンとCookieのnonceが一致しないことを表す。
var ErrStateMismatch = errors.New("oauth state does not match")

// StateIssuer はOAuthのstateパラメータをHS256署名付きJWTとして発行・検証する。
// nonceはCookieにも保存し、コールバックで両者の一致を確認する。
type StateIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateIssuer はStateIssuerを生成する。
func NewStateIssuer(secret string, ttl time.Duration) *StateIssuer {
	return &StateIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL はstateトークンの有効期間を返す。
func (s *StateIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue は新しいnonceと、それを埋め込んだ署名付きstateトークンを返す。
func (s *StateIssuer) Issue() (token, nonce string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	nonce = hex.EncodeToString(b)

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   stateSubject,
		ID:        nonce,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return token, nonce, nil
}

// Verify はstateトークンの署名と有効期限を検証し、nonceが一致することを確認する。
func (s *StateIssuer) Verify(token, nonce string) error {
	if token == "" || nonce == "" {
		return ErrStateMismatch
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(stateSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("invalid state token: %w", err)
	}

	if claims.ID != nonce {
		return ErrStateMismatch
	}
	return nil
}
