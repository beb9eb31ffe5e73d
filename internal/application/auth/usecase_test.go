package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/materiales-api/internal/application/auth"
	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/infrastructure/memory"
	"github.com/jhoicas/materiales-api/pkg/jwt"
)

const secret = "secreto-de-pruebas"

func newAuth() *auth.AuthUseCase {
	repo := memory.NewUserRepository(memory.NewStore())
	return auth.NewAuthUseCase(repo, auth.JWTConfig{Secret: secret, ExpMinutes: 5, Issuer: "test"}, nil).
		WithHashCost(bcrypt.MinCost)
}

func TestRegisterUser_HasheaYNormaliza(t *testing.T) {
	uc := newAuth()
	u, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "  Compras@Obra.CO ", Password: "clave-segura", Role: entity.RoleProcurement,
	})
	require.NoError(t, err)
	assert.Equal(t, "compras@obra.co", u.Email)
	assert.Equal(t, "compras@obra.co", u.Name, "sin nombre se usa el email")
	assert.NotEqual(t, "clave-segura", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("clave-segura")))
}

func TestRegisterUser_Validaciones(t *testing.T) {
	uc := newAuth()
	ctx := context.Background()
	cases := []dto.RegisterRequest{
		{Email: "sin-arroba", Password: "clave-segura", Role: entity.RoleSite},
		{Email: "a@b.co", Password: "corta", Role: entity.RoleSite},
		{Email: "a@b.co", Password: "clave-segura", Role: "vendedor"},
	}
	for _, in := range cases {
		_, err := uc.RegisterUser(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, in)
	}

	_, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "a@b.co", Password: "clave-segura", Role: entity.RoleSite})
	require.NoError(t, err)
	_, err = uc.RegisterUser(ctx, dto.RegisterRequest{Email: "A@B.co", Password: "clave-segura", Role: entity.RoleSite})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestLogin_EmiteTokenConRol(t *testing.T) {
	uc := newAuth()
	ctx := context.Background()
	u, err := uc.RegisterUser(ctx, dto.RegisterRequest{Email: "obra@b.co", Password: "clave-segura", Role: entity.RoleSite})
	require.NoError(t, err)

	out, err := uc.Login(ctx, dto.LoginRequest{Email: "OBRA@b.co", Password: "clave-segura"})
	require.NoError(t, err)
	userID, role, err := jwt.Parse(secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, entity.RoleSite, role)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "obra@b.co", Password: "otra"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@b.co", Password: "clave-segura"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "obra@b.co", Password: "clave-segura"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestEnsureAdmin_SoloSinUsuarios(t *testing.T) {
	uc := newAuth()
	ctx := context.Background()

	require.NoError(t, uc.EnsureAdmin(ctx, "", ""), "sin email no hace nada")
	require.NoError(t, uc.EnsureAdmin(ctx, "admin@b.co", "clave-admin"))
	require.NoError(t, uc.EnsureAdmin(ctx, "otro@b.co", "clave-admin"), "con usuarios existentes no crea otro")

	list, err := uc.ListUsers(ctx, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.RoleAdmin, list[0].Role)

	_, err = uc.GetUser(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
