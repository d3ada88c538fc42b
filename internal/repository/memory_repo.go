package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/printpress/internal/model"
)

// MemoryUserRepo はプロセス内メモリに保持するユーザーリポジトリ。
// ローカル開発とテスト用で、再起動するとデータは失われる。
type MemoryUserRepo struct {
	mu       sync.RWMutex
	byID     map[string]*model.User
	byGoogle map[string]string
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:     make(map[string]*model.User),
		byGoogle: make(map[string]string),
	}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// FindByGoogleID はGoogleのsubject idでユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byGoogle[googleID]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}

// Create はユーザーを作成する。GoogleIDが重複する場合はErrDuplicateUserを返す。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byGoogle[user.GoogleID]; ok {
		return ErrDuplicateUser
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.byGoogle[user.GoogleID] = user.ID
	return nil
}

// Delete はユーザーを削除する。サービス自身はユーザーを削除しないため、
// 削除済みユーザーのセッションを検証するテストでのみ使用する。
func (r *MemoryUserRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		delete(r.byGoogle, u.GoogleID)
		delete(r.byID, id)
	}
}

// MemorySessionRepo はプロセス内メモリに保持するセッションリポジトリ。
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

// Create はセッションを作成する。
func (r *MemorySessionRepo) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

// FindByID は指定IDのセッションを取得する。存在しないか期限切れの場合はnilを返す。
func (r *MemorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.Expired(r.now()) {
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// MemoryQuoteRepo はプロセス内メモリに保持する見積依頼リポジトリ。
type MemoryQuoteRepo struct {
	mu     sync.RWMutex
	quotes map[string]*model.Quote
}

// NewMemoryQuoteRepo はMemoryQuoteRepoを生成する。
func NewMemoryQuoteRepo() *MemoryQuoteRepo {
	return &MemoryQuoteRepo{quotes: make(map[string]*model.Quote)}
}

// Create は見積依頼を作成する。
func (r *MemoryQuoteRepo) Create(_ context.Context, quote *model.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *quote
	r.quotes[quote.ID] = &cp
	return nil
}

// ListByUserID はユーザーの見積依頼を作成日時の降順で返す。
func (r *MemoryQuoteRepo) ListByUserID(_ context.Context, userID string) ([]*model.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quotes := []*model.Quote{}
	for _, q := range r.quotes {
		if q.UserID == userID {
			cp := *q
			quotes = append(quotes, &cp)
		}
	}
	sortNewestFirst(quotes)
	return quotes, nil
}

// FindByIDAndUserID はIDと所有者が一致する見積依頼を返す。見つからない場合はnilを返す。
func (r *MemoryQuoteRepo) FindByIDAndUserID(_ context.Context, id, userID string) (*model.Quote, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotes[id]
	if !ok || q.UserID != userID {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

// sortNewestFirst はcreated_at DESC, id DESCの順に並べ替える。
func sortNewestFirst(quotes []*model.Quote) {
	sort.Slice(quotes, func(i, j int) bool {
		if !quotes[i].CreatedAt.Equal(quotes[j].CreatedAt) {
			return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
		}
		return quotes[i].ID > quotes[j].ID
	})
}

// compile-time interface checks
var (
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ SessionRepository = (*MemorySessionRepo)(nil)
	_ QuoteRepository   = (*MemoryQuoteRepo)(nil)
)
