package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	if repo := NewPostgresUserRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// openTestDB はTEST_DATABASE_URLのDBにマイグレーションを適用して返す。
// 未設定または接続できない場合はテストをスキップする。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL が未設定のためスキップ")
	}

	db, err := database.Open(dbURL)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("テスト用データベースに接続できません（スキップ）: %v", err)
	}
	if err := database.RunMigrations(dbURL); err != nil {
		db.Close()
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser はテスト用ユーザーを作成し、テスト終了時に削除する。
func createTestUser(t *testing.T, db *sql.DB) *model.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     uuid.New().String() + "@example.com",
		Name:      "Test User",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := NewPostgresUserRepo(db).Create(context.Background(), user); err != nil {
		t.Fatalf("ユーザー作成に失敗: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM users WHERE id = $1`, user.ID)
	})
	return user
}

func TestPostgresUserRepo_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresUserRepo(db)
	ctx := context.Background()

	user := createTestUser(t, db)

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID に失敗: %v", err)
	}
	if byID == nil || byID.Email != user.Email {
		t.Fatalf("FindByID = %+v, want email %q", byID, user.Email)
	}

	byEmail, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("FindByEmail に失敗: %v", err)
	}
	if byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("FindByEmail = %+v, want id %q", byEmail, user.ID)
	}

	missing, err := repo.FindByEmail(ctx, "nobody-"+uuid.New().String()+"@example.com")
	if err != nil {
		t.Fatalf("FindByEmail に失敗: %v", err)
	}
	if missing != nil {
		t.Errorf("存在しないユーザーはnilであるべき: got %+v", missing)
	}
}

func TestPostgresUserRepo_DeleteByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresUserRepo(db)

	if err := repo.DeleteByID(context.Background(), uuid.New().String()); err == nil {
		t.Error("存在しないユーザーの削除はエラーになるべき")
	}
}

func TestPostgresSessionRepo_ExpiredSessionIsHidden(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()
	user := createTestUser(t, db)

	now := time.Now()
	valid := &model.Session{ID: uuid.New().String(), UserID: user.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	expired := &model.Session{ID: uuid.New().String(), UserID: user.ID, ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	for _, s := range []*model.Session{valid, expired} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("セッション作成に失敗: %v", err)
		}
	}

	got, err := repo.FindByID(ctx, valid.ID)
	if err != nil || got == nil {
		t.Fatalf("有効なセッションが取得できない: got=%v err=%v", got, err)
	}

	got, err = repo.FindByID(ctx, expired.ID)
	if err != nil {
		t.Fatalf("FindByID に失敗: %v", err)
	}
	if got != nil {
		t.Error("期限切れセッションはnilであるべき")
	}

	if err := repo.DeleteByUserID(ctx, user.ID); err != nil {
		t.Fatalf("DeleteByUserID に失敗: %v", err)
	}
	got, _ = repo.FindByID(ctx, valid.ID)
	if got != nil {
		t.Error("DeleteByUserID後もセッションが残っている")
	}
}
