package authmw

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nerzal/gocloak/v13"
)

// KeycloakService wraps the gocloak client for the external identity
// provider mode: registrations create realm users, logins exchange
// credentials for realm tokens.
type KeycloakService struct {
	client       *gocloak.GoCloak
	realm        string
	clientID     string
	clientSecret string
}

func NewKeycloakService(baseURL, realm, clientID, clientSecret string) (*KeycloakService, error) {
	s := &KeycloakService{
		client:       gocloak.NewClient("http://" + baseURL),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
	}

	if err := s.selfTest(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *KeycloakService) selfTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jwt, err := s.client.LoginClient(ctx, s.clientID, s.clientSecret, s.realm)
	if err != nil {
		return fmt.Errorf("keycloak auth failed: %w", err)
	}

	// the client must at least be able to read its own realm
	if _, err := s.client.GetRealm(ctx, jwt.AccessToken, s.realm); err != nil {
		return fmt.Errorf("keycloak permission check failed: %w", err)
	}

	return nil
}

// Login exchanges user credentials for a realm token.
func (s *KeycloakService) Login(ctx context.Context, email, password string) (*gocloak.JWT, error) {
	return s.client.Login(ctx, s.clientID, s.clientSecret, s.realm, email, password)
}

// RegisterUser creates an enabled realm user with a permanent password. The
// email doubles as the username, matching what the token claims carry back.
func (s *KeycloakService) RegisterUser(ctx context.Context, email, fullname, password string) (string, error) {
	admin, err := s.client.LoginClient(ctx, s.clientID, s.clientSecret, s.realm)
	if err != nil {
		return "", fmt.Errorf("keycloak admin login failed: %w", err)
	}

	firstname, lastname := splitFullname(fullname)
	user := gocloak.User{
		Username:  gocloak.StringP(email),
		Email:     gocloak.StringP(email),
		Enabled:   gocloak.BoolP(true),
		FirstName: gocloak.StringP(firstname),
		LastName:  gocloak.StringP(lastname),
		Credentials: &[]gocloak.CredentialRepresentation{
			{
				Type:      gocloak.StringP("password"),
				Value:     gocloak.StringP(password),
				Temporary: gocloak.BoolP(false),
			},
		},
	}

	return s.client.CreateUser(ctx, admin.AccessToken, s.realm, user)
}

func splitFullname(fullname string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(fullname), " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
