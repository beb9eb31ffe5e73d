package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/pkg/jwt"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

const minPasswordLength = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: alta de usuarios y login.
type AuthUseCase struct {
	users  repository.UserRepository
	jwtCfg JWTConfig
	cost   int
	log    *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(users repository.UserRepository, jwtCfg JWTConfig, log *logger.Logger) *AuthUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUseCase{users: users, jwtCfg: jwtCfg, cost: bcrypt.DefaultCost, log: log}
}

// WithHashCost cambia el costo de bcrypt (pruebas).
func (uc *AuthUseCase) WithHashCost(cost int) *AuthUseCase {
	uc.cost = cost
	return uc
}

// RegisterUser crea un usuario activo. ErrDuplicate si el email ya existe.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*entity.User, error) {
	email := entity.NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") || len(in.Password) < minPasswordLength || !entity.ValidRole(in.Role) {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrDuplicate)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("usuario registrado")
	return user, nil
}

// Login verifica email/password y emite un JWT con el rol del usuario.
// Email inexistente y contraseña incorrecta responden igual (ErrUnauthorized).
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.users.GetByEmail(ctx, entity.NormalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, fmt.Errorf("usuario inactivo: %w", domain.ErrForbidden)
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, User: dto.ToUserResponse(user)}, nil
}

// GetUser obtiene un usuario por ID.
func (uc *AuthUseCase) GetUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// ListUsers lista usuarios con paginación.
func (uc *AuthUseCase) ListUsers(ctx context.Context, page dto.PageRequest) ([]*entity.User, error) {
	page = page.Normalize()
	return uc.users.List(ctx, page.Limit, page.Offset)
}

// SetActive activa o desactiva un usuario. Un usuario inactivo no puede iniciar sesión;
// los tokens ya emitidos siguen vigentes hasta expirar.
func (uc *AuthUseCase) SetActive(ctx context.Context, id string, active bool) (*entity.User, error) {
	u, err := uc.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	if err := uc.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin crea el administrador inicial si no existe ningún usuario. Sin email no hace nada.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	n, err := uc.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	u, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: email, Password: password, Name: "Administrador", Role: entity.RoleAdmin})
	if err != nil {
		return fmt.Errorf("crear administrador inicial: %w", err)
	}
	uc.log.Warn().Str("email", u.Email).Msg("administrador inicial creado")
	return nil
}
