package users

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUserRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request UserRequest
		wantErr error
	}{
		{
			name:    "valid admin",
			request: UserRequest{Email: "admin@example.com", Password: "s3cret", Role: "admin"},
		},
		{
			name:    "valid user",
			request: UserRequest{Email: "user@example.com", Password: "s3cret", Role: "user"},
		},
		{
			name:    "empty email",
			request: UserRequest{Email: "  ", Password: "s3cret", Role: "user"},
			wantErr: ErrEmailCannotBeEmpty,
		},
		{
			name:    "email too short",
			request: UserRequest{Email: "a@b", Password: "s3cret", Role: "user"},
			wantErr: ErrEmailTooShort,
		},
		{
			name:    "email too long",
			request: UserRequest{Email: strings.Repeat("a", 95) + "@example.com", Password: "s3cret", Role: "user"},
			wantErr: ErrEmailTooLong,
		},
		{
			name:    "malformed email",
			request: UserRequest{Email: "not-an-email", Password: "s3cret", Role: "user"},
			wantErr: ErrInvalidEmailFormat,
		},
		{
			name:    "missing password",
			request: UserRequest{Email: "user@example.com", Password: "", Role: "user"},
			wantErr: ErrPasswordCannotBeEmpty,
		},
		{
			name:    "unknown role",
			request: UserRequest{Email: "user@example.com", Password: "s3cret", Role: "root"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateUserRequest(&tt.request)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestValidateUserRequestDefaultsRole(t *testing.T) {
	t.Parallel()

	req := UserRequest{Email: "user@example.com", Password: "s3cret"}
	require.NoError(t, ValidateUserRequest(&req))
	assert.Equal(t, "user", req.Role)
}

func TestValidateUserUpdate(t *testing.T) {
	t.Parallel()

	// Blank password means keep the current one
	req := UserRequest{Email: "user@example.com", Role: "admin"}
	require.NoError(t, ValidateUserUpdate(&req))

	// Whitespace-only is still rejected
	req = UserRequest{Email: "user@example.com", Password: "   ", Role: "admin"}
	require.ErrorIs(t, ValidateUserUpdate(&req), ErrPasswordCannotBeEmpty)

	// Email rules still apply
	req = UserRequest{Email: "bad", Role: "admin"}
	require.Error(t, ValidateUserUpdate(&req))
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	// Hashing is salted: two hashes of the same input differ
	other, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)

	ok, err := VerifyPassword("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
	}{
		{name: "not a hash", hash: "plaintext"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{name: "bad salt encoding", hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := VerifyPassword("s3cret", tt.hash)
			require.Error(t, err)
		})
	}
}

func TestRolePermissionCatalog(t *testing.T) {
	t.Parallel()

	admin := GetRolePermissions("admin")
	user := GetRolePermissions("user")

	names := func(perms []Permission) []string {
		out := make([]string, 0, len(perms))
		for _, p := range perms {
			out = append(out, p.Name)
		}

		return out
	}

	// Only admins manage users
	assert.Contains(t, names(admin), "users:create")
	assert.Contains(t, names(admin), "users:delete")
	assert.NotContains(t, names(user), "users:view")

	// Both roles work with devices and discovery
	for _, perms := range [][]Permission{admin, user} {
		assert.Contains(t, names(perms), "devices:view")
		assert.Contains(t, names(perms), "devices:manage")
		assert.Contains(t, names(perms), "devices:protect")
		assert.Contains(t, names(perms), "scan:run")
	}

	assert.Greater(t, len(admin), len(user))

	// Unknown roles fall back to the user set
	assert.Equal(t, user, GetRolePermissions("guest"))
}

func TestUserToResponse(t *testing.T) {
	t.Parallel()

	u := User{Email: "admin@example.com", Password: "hash", Role: "admin"}
	resp := u.ToResponse()

	assert.Equal(t, "admin@example.com", resp.Email)
	assert.Equal(t, "admin", resp.Role)
	assert.NotEmpty(t, resp.Permissions)
}
