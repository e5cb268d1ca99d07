package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/validator"
)

// --- モック ---

type mockIdentityRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.Identity, error)
	createFn      func(ctx context.Context, identity *model.Identity) error
}

func (m *mockIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	if m.createFn != nil {
		return m.createFn(ctx, identity)
	}
	return nil
}

// plainHasher はテスト用にハッシュ化を単純な接頭辞付与で代替する。
type plainHasher struct {
	hashErr error
}

func (h *plainHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *plainHasher) Compare(hash, password string) bool {
	return hash == "hashed:"+password
}

type mockIssuer struct {
	issueFn func(subjectID, email string) (string, error)
}

func (m *mockIssuer) Issue(subjectID, email string) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(subjectID, email)
	}
	return "token-for-" + subjectID, nil
}

type mockRecorder struct {
	registrations int
	logins        []bool
}

func (m *mockRecorder) RecordRegistration()      { m.registrations++ }
func (m *mockRecorder) RecordLogin(success bool) { m.logins = append(m.logins, success) }

// --- Register ---

func TestService_Register_Success(t *testing.T) {
	var created *model.Identity
	repo := &mockIdentityRepo{
		createFn: func(ctx context.Context, identity *model.Identity) error {
			created = identity
			return nil
		},
	}
	rec := &mockRecorder{}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, rec)

	got, err := svc.Register(context.Background(), validator.RegisterInput{Email: "a@x.io", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected repository Create to be called")
	}
	if got.ID == "" || got.ID != created.ID {
		t.Errorf("ID = %q, want generated id %q", got.ID, created.ID)
	}
	if got.Email != "a@x.io" {
		t.Errorf("Email = %q, want %q", got.Email, "a@x.io")
	}
	if got.PasswordHash != "hashed:secret1" {
		t.Errorf("PasswordHash = %q, want hashed value", got.PasswordHash)
	}
	if got.CreatedAt.IsZero() || !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("timestamps not set: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
	if rec.registrations != 1 {
		t.Errorf("registrations = %d, want 1", rec.registrations)
	}
}

func TestService_Register_EmailTakenByPreCheck(t *testing.T) {
	createCalled := false
	repo := &mockIdentityRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Identity, error) {
			return &model.Identity{ID: "u1", Email: email}, nil
		},
		createFn: func(ctx context.Context, identity *model.Identity) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	_, err := svc.Register(context.Background(), validator.RegisterInput{Email: "a@x.io", Password: "secret1"})
	if !model.IsKind(err, model.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if createCalled {
		t.Error("Create must not be called when the email is taken")
	}
}

// 事前チェックをすり抜けた同時登録も一意制約で409になること
func TestService_Register_EmailTakenByUniqueIndex(t *testing.T) {
	repo := &mockIdentityRepo{
		createFn: func(ctx context.Context, identity *model.Identity) error {
			return repository.ErrDuplicate
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	_, err := svc.Register(context.Background(), validator.RegisterInput{Email: "a@x.io", Password: "secret1"})
	if !model.IsKind(err, model.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestService_Register_PasswordTooLong(t *testing.T) {
	svc := NewService(&mockIdentityRepo{}, &plainHasher{hashErr: ErrPasswordTooLong}, &mockIssuer{}, nil)

	_, err := svc.Register(context.Background(), validator.RegisterInput{Email: "a@x.io", Password: "x"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != model.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(apiErr.Fields["password"]) == 0 {
		t.Errorf("expected password field error, got %v", apiErr.Fields)
	}
}

func TestService_Register_RepositoryError(t *testing.T) {
	dbErr := errors.New("connection reset")
	repo := &mockIdentityRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Identity, error) {
			return nil, dbErr
		},
	}
	svc := NewService(repo, &plainHasher{}, &mockIssuer{}, nil)

	_, err := svc.Register(context.Background(), validator.RegisterInput{Email: "a@x.io", Password: "secret1"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

// --- Login ---

func registeredRepo() *mockIdentityRepo {
	return &mockIdentityRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Identity, error) {
			if email != "a@x.io" {
				return nil, nil
			}
			return &model.Identity{ID: "u1", Email: "a@x.io", PasswordHash: "hashed:secret1"}, nil
		},
	}
}

func TestService_Login_Success(t *testing.T) {
	var issuedFor, issuedEmail string
	issuer := &mockIssuer{issueFn: func(subjectID, email string) (string, error) {
		issuedFor, issuedEmail = subjectID, email
		return "signed-token", nil
	}}
	rec := &mockRecorder{}
	svc := NewService(registeredRepo(), &plainHasher{}, issuer, rec)

	token, err := svc.Login(context.Background(), validator.LoginInput{Email: "a@x.io", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token != "signed-token" {
		t.Errorf("token = %q, want %q", token, "signed-token")
	}
	if issuedFor != "u1" || issuedEmail != "a@x.io" {
		t.Errorf("issued for (%q, %q), want (u1, a@x.io)", issuedFor, issuedEmail)
	}
	if len(rec.logins) != 1 || !rec.logins[0] {
		t.Errorf("logins = %v, want [true]", rec.logins)
	}
}

// 未登録と誤パスワードは区別できない同一のエラーになること
func TestService_Login_FailuresAreIndistinguishable(t *testing.T) {
	rec := &mockRecorder{}
	svc := NewService(registeredRepo(), &plainHasher{}, &mockIssuer{}, rec)

	_, errUnknown := svc.Login(context.Background(), validator.LoginInput{Email: "nobody@x.io", Password: "secret1"})
	_, errWrong := svc.Login(context.Background(), validator.LoginInput{Email: "a@x.io", Password: "wrong"})

	var a, b *model.APIError
	if !errors.As(errUnknown, &a) || !errors.As(errWrong, &b) {
		t.Fatalf("expected APIErrors, got %v / %v", errUnknown, errWrong)
	}
	if a.Kind != model.KindAuth || a.Code != b.Code || a.Message != b.Message {
		t.Errorf("errors differ: %+v vs %+v", a, b)
	}
	if len(rec.logins) != 2 || rec.logins[0] || rec.logins[1] {
		t.Errorf("logins = %v, want [false false]", rec.logins)
	}
}

func TestService_Login_IssuerError(t *testing.T) {
	issueErr := errors.New("sign failed")
	issuer := &mockIssuer{issueFn: func(subjectID, email string) (string, error) {
		return "", issueErr
	}}
	svc := NewService(registeredRepo(), &plainHasher{}, issuer, nil)

	_, err := svc.Login(context.Background(), validator.LoginInput{Email: "a@x.io", Password: "secret1"})
	if !errors.Is(err, issueErr) {
		t.Fatalf("expected issuer error, got %v", err)
	}
}
