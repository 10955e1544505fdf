// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
)

// SavedDesignDeleter は保存済みデザインの一括削除インターフェース。
type SavedDesignDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// 退会処理とセッション発行を提供する。
type Service struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	savedDeleter  SavedDesignDeleter
	sessionMaxAge time.Duration
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	savedDeleter SavedDesignDeleter,
	sessionMaxAge time.Duration,
) *Service {
	return &Service{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		savedDeleter:  savedDeleter,
		sessionMaxAge: sessionMaxAge,
		now:           time.Now,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: saved_designs → sessions → user
// カタログに投稿したデザインは作者名を残したまま公開を続ける。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. 保存済みデザインを削除（MongoDBバックエンドにはCASCADEがない）
	if s.savedDeleter != nil {
		if err := s.savedDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("保存済みデザインの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// IssueSession はメールアドレスのユーザーを検索し、存在しなければ作成してセッションを発行する。
// 運用コマンドから呼ばれる。ログインフローは提供しない。
func (s *Service) IssueSession(ctx context.Context, email string) (*model.Session, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return nil, model.NewInvalidEmailError(email)
	}
	normalized := strings.ToLower(addr.Address)
	now := s.now()

	user, err := s.userRepo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     normalized,
			Name:      strings.SplitN(normalized, "@", 2)[0],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}
		slog.Info("ユーザーを作成しました",
			slog.String("user_id", user.ID),
		)
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionMaxAge),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	slog.Info("セッションを発行しました",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

// RevokeSessions はメールアドレスのユーザーが持つすべてのセッションを削除する。
// 漏えいしたトークンを無効化する運用コマンドから呼ばれる。
func (s *Service) RevokeSessions(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return model.NewInvalidEmailError(email)
	}

	user, err := s.userRepo.FindByEmail(ctx, normalized)
	if err != nil {
		return fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	slog.Info("セッションを失効させました",
		slog.String("user_id", user.ID),
	)
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
