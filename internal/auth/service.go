package auth

import (
	"context"
	"errors"
	"strings"

	"pdfchat/internal/api"
	"pdfchat/internal/model"
	"pdfchat/internal/pkg/jwtutil"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotLoggedIn  = errors.New("not logged in")
)

type Service struct {
	api    *api.Client
	tokens *TokenProvider
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewService(apiClient *api.Client, tokens *TokenProvider) *Service {
	return &Service{api: apiClient, tokens: tokens}
}

// Login exchanges credentials for a token pair and stores it.
func (s *Service) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	var resp loginResponse
	if err := s.api.PostJSON(ctx, "/api/login/", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	return s.tokens.SetCredential(model.Credential{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
	})
}

// Register creates an account. The server answers with a status only;
// the caller still logs in afterwards.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return ErrInvalidInput
	}
	return s.api.PostJSON(ctx, "/api/register/", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, nil)
}

func (s *Service) Logout() error {
	return s.tokens.Clear()
}

// Whoami decodes the stored access token for display. There is no
// refresh exchange: an expired token simply fails on its next use.
func (s *Service) Whoami() (*jwtutil.TokenInfo, error) {
	cred := s.tokens.Credential()
	if cred.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return jwtutil.Inspect(cred.AccessToken)
}
