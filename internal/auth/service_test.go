package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xdpzq/centralgpt/internal/store"
	"go.uber.org/zap"
)

const testAdminKey = "admin-console-key"

func testEnv(t *testing.T) (*UserStore, *TokenService, *Service) {
	t.Helper()

	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userStore, err := NewUserStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}

	tokens := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	svc, err := NewService(userStore, tokens, testAdminKey, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return userStore, tokens, svc
}

func TestLogin_Admin(t *testing.T) {
	_, tokens, svc := testEnv(t)

	sess, err := svc.Login(context.Background(), testAdminKey)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.Role != RoleAdmin {
		t.Errorf("role = %q, want admin", sess.User.Role)
	}
	claims, err := tokens.ValidateAccessToken(sess.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if !claims.IsAdmin() {
		t.Error("claims should be admin")
	}
	if sess.ExpiresIn != 900 {
		t.Errorf("ExpiresIn = %d, want 900", sess.ExpiresIn)
	}
}

func TestLogin_AdminDisabledWithoutKey(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	defer db.Close()
	userStore, err := NewUserStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	tokens := NewTokenService([]byte("secret"), time.Minute, time.Hour)
	svc, err := NewService(userStore, tokens, "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Login(context.Background(), "anything"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Login err = %v, want ErrInvalidKey", err)
	}
}

func TestNewService_RejectsUserPrefixedAdminKey(t *testing.T) {
	us, tokens, _ := testEnv(t)

	if _, err := NewService(us, tokens, AccessKeyPrefix+"ADMN-0001", zap.NewNop()); !errors.Is(err, ErrAdminKeyFormat) {
		t.Errorf("err = %v, want ErrAdminKeyFormat", err)
	}
	if _, err := NewService(us, tokens, "cgpt-lowercase-is-fine", zap.NewNop()); err != nil {
		t.Errorf("lowercase admin key: %v", err)
	}
}

func TestLogin_UserKey(t *testing.T) {
	us, _, svc := testEnv(t)
	ctx := context.Background()

	user, key, err := svc.CreateUser(ctx, "neo", "Oracle", "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !strings.HasPrefix(key, AccessKeyPrefix) {
		t.Errorf("key = %q, want %s prefix", key, AccessKeyPrefix)
	}
	if user.DevName != DefaultDevName {
		t.Errorf("DevName = %q, want default", user.DevName)
	}

	sess, err := svc.Login(ctx, "  "+key+"  ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.Username != "neo" || sess.User.Role != RoleUser {
		t.Errorf("principal = %+v", sess.User)
	}
	if sess.User.AIName != "Oracle" {
		t.Errorf("AIName = %q, want Oracle", sess.User.AIName)
	}

	got, err := us.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.LastLogin.IsZero() {
		t.Error("LastLogin should be set after login")
	}
}

func TestLogin_UnknownKey(t *testing.T) {
	_, _, svc := testEnv(t)

	for _, key := range []string{"", "CGPT-0000-0000", "wrong-admin-key"} {
		if _, err := svc.Login(context.Background(), key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Login(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestLogin_DisabledUser(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	user, key, _ := svc.CreateUser(ctx, "trinity", "", "")
	disabled := true
	if _, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Disabled: &disabled}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := svc.Login(ctx, key); !errors.Is(err, ErrUserDisabled) {
		t.Errorf("Login err = %v, want ErrUserDisabled", err)
	}
}

func TestRefresh_Rotation(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	_, key, _ := svc.CreateUser(ctx, "morpheus", "", "")
	sess, err := svc.Login(ctx, key)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == sess.RefreshToken {
		t.Error("refresh token should rotate")
	}
	if next.User.Username != "morpheus" {
		t.Errorf("username = %q, want morpheus", next.User.Username)
	}

	if _, err := svc.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reusing old token err = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh_Admin(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, testAdminKey)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.User.Role != RoleAdmin {
		t.Errorf("role = %q, want admin", next.User.Role)
	}
}

func TestRefresh_RevokeFailureIssuesNothing(t *testing.T) {
	us, _, svc := testEnv(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, testAdminKey)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := us.db.ExecContext(ctx, `CREATE TRIGGER block_revoke BEFORE UPDATE ON auth_refresh_tokens
		BEGIN SELECT RAISE(ABORT, 'revoke blocked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	if err == nil {
		t.Fatal("Refresh should fail when the old token cannot be revoked")
	}
	if next != nil {
		t.Errorf("Refresh returned a session: %+v", next)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	_, _, svc := testEnv(t)

	if _, err := svc.Refresh(context.Background(), "nonexistent"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	sess, _ := svc.Login(ctx, testAdminKey)
	if err := svc.Logout(ctx, sess.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh after logout err = %v, want ErrInvalidToken", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	_, _, svc := testEnv(t)

	if err := svc.Logout(context.Background(), "unknown-token"); err != nil {
		t.Errorf("Logout unknown token: %v", err)
	}
}

func TestCreateUser_DuplicateCaseInsensitive(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	if _, _, err := svc.CreateUser(ctx, "Neo", "", ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, _, err := svc.CreateUser(ctx, "neo", "", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("err = %v, want ErrUserExists", err)
	}
}

func TestRegenerateKey(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	user, oldKey, _ := svc.CreateUser(ctx, "tank", "", "")
	sess, _ := svc.Login(ctx, oldKey)

	newKey, err := svc.RegenerateKey(ctx, user.ID)
	if err != nil {
		t.Fatalf("RegenerateKey: %v", err)
	}
	if newKey == oldKey {
		t.Error("key should change")
	}
	if _, err := svc.Login(ctx, oldKey); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("old key err = %v, want ErrInvalidKey", err)
	}
	if _, err := svc.Login(ctx, newKey); err != nil {
		t.Errorf("new key: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old session refresh err = %v, want ErrInvalidToken", err)
	}

	if _, err := svc.RegenerateKey(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateUser_Persona(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	user, _, _ := svc.CreateUser(ctx, "switch", "", "")
	ai, dev := "Sentinel", "  "
	got, err := svc.UpdateUser(ctx, user.ID, UserUpdate{AIName: &ai, DevName: &dev})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got.AIName != "Sentinel" {
		t.Errorf("AIName = %q, want Sentinel", got.AIName)
	}
	if got.DevName != DefaultDevName {
		t.Errorf("blank DevName should reset to default, got %q", got.DevName)
	}
}

func TestPrincipal(t *testing.T) {
	_, _, svc := testEnv(t)
	ctx := context.Background()

	p, err := svc.Principal(ctx, &Claims{UserID: adminSubject, Role: string(RoleAdmin)})
	if err != nil || p.Role != RoleAdmin {
		t.Fatalf("admin principal = %+v, %v", p, err)
	}

	user, _, _ := svc.CreateUser(ctx, "apoc", "Link", "")
	p, err = svc.Principal(ctx, &Claims{UserID: user.ID, Role: string(RoleUser)})
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if p.AIName != "Link" {
		t.Errorf("AIName = %q, want Link", p.AIName)
	}

	if _, err := svc.Principal(ctx, &Claims{UserID: "gone", Role: string(RoleUser)}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	us, _, svc := testEnv(t)
	ctx := context.Background()

	user, key, _ := svc.CreateUser(ctx, "mouse", "", "")
	if _, err := svc.Login(ctx, key); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if n, _ := us.CountUsers(ctx); n != 0 {
		t.Errorf("CountUsers = %d, want 0", n)
	}
	if err := svc.DeleteUser(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second delete err = %v, want ErrUserNotFound", err)
	}
}

func TestCleanExpiredTokens(t *testing.T) {
	us, _, svc := testEnv(t)
	ctx := context.Background()

	sess, _ := svc.Login(ctx, testAdminKey)
	_ = svc.Logout(ctx, sess.RefreshToken)
	if err := us.SaveRefreshToken(ctx, "old", "admin", "h", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	n, err := us.CleanExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("CleanExpiredTokens: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d tokens, want 2", n)
	}
}
