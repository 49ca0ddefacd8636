//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/servicemocks/mock_auth_service.go -package=servicemocks
package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"log/slog"
)

type IAuthService interface {
	Login(req auth.LoginRequest) (AuthSession, error)
	Register(req auth.RegisterRequest) (AuthSession, error)
	Me(userID string) (domain.User, error)
}

// AuthSession is returned by login and registration.
type AuthSession struct {
	Token Token       `json:"token"`
	User  domain.User `json:"user"`
}

type Token string

func (t Token) String() string {
	return string(t)
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(req auth.RegisterRequest) (AuthSession, error) {
	// Business rules first, before any expensive cryptographic operation.
	if err := auth.ValidateRegister(req); err != nil {
		return AuthSession{}, err
	}

	// Hashing stays in the service so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return AuthSession{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(repositories.User{
		Name:         req.Name,
		Email:        req.Email,
		Image:        req.Image,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return AuthSession{}, err // ErrUserAlreadyExists if email is taken
	}
	s.log.Info("User registered", "user", user.ID)

	return s.session(user)
}

func (s *AuthService) Login(req auth.LoginRequest) (AuthSession, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return AuthSession{}, err
	}

	user, err := s.userRepository.GetUserByEmail(req.Email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return AuthSession{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return AuthSession{}, errors.ErrInvalidCredentials
	}

	return s.session(user)
}

// Me returns the public profile of an authenticated user.
func (s *AuthService) Me(userID string) (domain.User, error) {
	user, err := s.userRepository.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	return user.ToDomain(), nil
}

func (s *AuthService) session(user repositories.User) (AuthSession, error) {
	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return AuthSession{}, err
	}
	return AuthSession{Token: Token(token), User: user.ToDomain()}, nil
}
