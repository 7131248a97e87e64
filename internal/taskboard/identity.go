package taskboard

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"taskboard-api/internal/authmw"
)

// identityProvider issues principals and tokens. The core never sees
// credentials beyond this boundary.
type identityProvider interface {
	Register(ctx context.Context, req RegisterRequest) (UserInfo, string, error)
	Login(ctx context.Context, email, password string) (UserInfo, string, error)
}

// localIdentity keeps credentials in the users table: bcrypt hashes, HS256
// tokens minted in-process.
type localIdentity struct {
	store  Store
	issuer *authmw.TokenIssuer
}

func (p *localIdentity) Register(ctx context.Context, req RegisterRequest) (UserInfo, string, error) {
	if req.Password != req.RepeatedPassword {
		return UserInfo{}, "", fieldErr("password", "Passwords don't match.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserInfo{}, "", err
	}

	u, err := p.store.CreateUser(ctx, req.Email, req.Fullname, string(hash))
	if err != nil {
		return UserInfo{}, "", err
	}

	token, err := p.issuer.Issue(u.UserID, u.Email, u.Fullname)
	if err != nil {
		return UserInfo{}, "", err
	}
	return u.Info(), token, nil
}

func (p *localIdentity) Login(ctx context.Context, email, password string) (UserInfo, string, error) {
	u, err := p.store.UserByEmail(ctx, email)
	if err != nil {
		// unknown email and wrong password answer identically
		return UserInfo{}, "", errInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return UserInfo{}, "", errInvalidCredentials
	}

	token, err := p.issuer.Issue(u.UserID, u.Email, u.Fullname)
	if err != nil {
		return UserInfo{}, "", err
	}
	return u.Info(), token, nil
}

// keycloakIdentity delegates credentials to the realm and mirrors each
// identity into a local user row so boards can reference numeric ids.
type keycloakIdentity struct {
	store Store
	kc    *authmw.KeycloakService
}

func (p *keycloakIdentity) Register(ctx context.Context, req RegisterRequest) (UserInfo, string, error) {
	if req.Password != req.RepeatedPassword {
		return UserInfo{}, "", fieldErr("password", "Passwords don't match.")
	}

	if _, err := p.store.UserByEmail(ctx, req.Email); err == nil {
		return UserInfo{}, "", errDuplicateEmail
	}

	if _, err := p.kc.RegisterUser(ctx, req.Email, req.Fullname, req.Password); err != nil {
		return UserInfo{}, "", err
	}

	u, err := p.store.EnsureUser(ctx, req.Email, req.Fullname)
	if err != nil {
		return UserInfo{}, "", err
	}

	jwt, err := p.kc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return UserInfo{}, "", err
	}
	return u.Info(), jwt.AccessToken, nil
}

func (p *keycloakIdentity) Login(ctx context.Context, email, password string) (UserInfo, string, error) {
	jwt, err := p.kc.Login(ctx, email, password)
	if err != nil {
		return UserInfo{}, "", errInvalidCredentials
	}

	u, err := p.store.EnsureUser(ctx, email, "")
	if err != nil {
		return UserInfo{}, "", err
	}
	return u.Info(), jwt.AccessToken, nil
}

// storeResolver backs the middleware's identity→user mapping in keycloak
// mode.
type storeResolver struct {
	store Store
}

func (r *storeResolver) ResolveUser(ctx context.Context, email, fullname string) (int64, error) {
	u, err := r.store.EnsureUser(ctx, email, fullname)
	if err != nil {
		return 0, err
	}
	return u.UserID, nil
}
