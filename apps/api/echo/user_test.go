package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/email"
	"github.com/trezcool/habari/tests"
)

func Test_userApi_login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.usrRepo, "hero", "hero@example.com", "LolC@t123", user.RoleReader, true)
	testutil.CreateUser(t, f.usrRepo, "ndog", "ndog@example.com", "LolC@t123", user.RoleReader, false)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, LoginRequest{Username: reqMsg, Password: reqMsg}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marshallObj(t, LoginRequest{Username: "hero", Password: "lol"}),
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marshallObj(t, LoginRequest{Username: "lol", Password: "LolC@t123"}),
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden,
			body:     marshallObj(t, LoginRequest{Username: "ndog", Password: "LolC@t123"}),
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", wantCode: http.StatusOK, body: marshallObj(t, LoginRequest{Username: "HERO ", Password: "LolC@t123"})},
		{name: "by email", wantCode: http.StatusOK, body: marshallObj(t, LoginRequest{Username: "hero@example.com", Password: "LolC@t123"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			f.serve(req, rec)

			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp LoginResponse
				unmarshall(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.usrRepo, "taken", "taken@example.com", "", user.RoleReader, true)

	t.Run("duplicate email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", marshallObj(t, user.NewUser{
			Username: "jane", Email: "taken@example.com", Password: "LolC@t123", PasswordConfirm: "LolC@t123",
		}))
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": user.ErrRegistrationFailed.Error()}),
		}, rec)
		assert.NotContains(t, rec.Body.String(), user.ErrEmailExists.Error())
	})

	t.Run("duplicate username", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", marshallObj(t, user.NewUser{
			Username: "taken", Email: "fresh@example.com", Password: "LolC@t123", PasswordConfirm: "LolC@t123",
		}))
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		}, rec)
	})

	t.Run("role is ignored", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", marshallObj(t, user.NewUser{
			Username:            "Jane",
			Email:               "jane@example.com",
			Role:                user.RoleSuperAdmin,
			Password:            "LolC@t123",
			PasswordConfirm:     "LolC@t123",
			SubscribeNewsletter: true,
		}))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			Token string    `json:"token"`
			User  user.User `json:"user"`
		}
		unmarshall(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "jane", resp.User.Username)
		assert.Equal(t, user.RoleReader, resp.User.Role)

		subscribed, err := f.usrSvc.NewsletterStatus(context.Background(), resp.User, f.site.ID)
		require.NoError(t, err)
		assert.True(t, subscribed)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	f := setup(t)
	naughty := testutil.CreateUser(t, f.usrRepo, "ndog", "ndog@example.com", "", user.RoleReader, false)
	hero := testutil.CreateUser(t, f.usrRepo, "hero", "hero@example.com", "", user.RoleReader, true)

	now := time.Now()
	unrefreshable := f.srv.auth.userClaims(hero, now.Add(-2*f.conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshable.StandardClaims = jwt.StandardClaims{
		Issuer:    f.conf.AppName,
		Subject:   hero.ID,
		ExpiresAt: now.Add(f.conf.Server.JWTExpirationDelta).Unix(),
		IssuedAt:  now.Unix(),
	}
	unrefreshableToken, err := f.srv.auth.generateToken(unrefreshable)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: f.token(t, naughty), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: f.token(t, hero), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			f.serve(req, rec)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp LoginResponse
				unmarshall(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_resetPassword(t *testing.T) {
	f := setup(t)
	hero := testutil.CreateUser(t, f.usrRepo, "hero", "hero@example.com", "", user.RoleReader, true)
	testutil.CreateUser(t, f.usrRepo, "ndog", "ndog@example.com", "", user.RoleReader, false)

	successData := marshallObj(t, SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, PasswordResetRequest{Email: "this field is required"}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marshallObj(t, PasswordResetRequest{Email: "lol"}),
			wantData: marshallObj(t, PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{name: "unknown email", wantCode: http.StatusOK, body: marshallObj(t, PasswordResetRequest{Email: "lol@test.com"}), wantData: successData, extra: false},
		{name: "inactive user", wantCode: http.StatusOK, body: marshallObj(t, PasswordResetRequest{Email: "ndog@example.com"}), wantData: successData, extra: false},
		{name: "known email", wantCode: http.StatusOK, body: marshallObj(t, PasswordResetRequest{Email: " HERO@example.com"}), wantData: successData, extra: true},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			f.serve(req, rec)
			checkCodeAndData(t, tt, rec)

			if sent, ok := tt.extra.(bool); ok {
				outbox := emailsvc.Outbox()
				if !sent {
					assert.Empty(t, outbox)
					return
				}
				require.Len(t, outbox, 1)
				assert.Equal(t, hero.Email, outbox[0].To[0].Address)
				assert.Contains(t, outbox[0].TextContent, "/accounts/reset/")
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	f := setup(t)
	hero, token := f.user(t, "hero", user.RoleReader)
	bPtr := func(b bool) *bool { return &b }

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/me")
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, rec)
	})

	t.Run("get", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		var got user.User
		unmarshall(t, rec, &got)
		assert.Equal(t, hero.ID, got.ID)
	})

	tests := []httpTest{
		{
			name: "cannot change own role", wantCode: http.StatusForbidden,
			body:     marshallObj(t, user.UpdateUser{Role: user.RoleSuperAdmin}),
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "cannot change own status", wantCode: http.StatusForbidden,
			body:     marshallObj(t, user.UpdateUser{IsActive: bPtr(true)}),
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "update", wantCode: http.StatusOK, body: marshallObj(t, user.UpdateUser{FirstName: "Super", LastName: "Hero"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/v1/users/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			f.serve(req, rec)

			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var got user.User
				unmarshall(t, rec, &got)
				assert.Equal(t, "Super", got.FirstName)
				assert.Equal(t, user.RoleReader, got.Role)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_newsletter(t *testing.T) {
	f := setup(t)
	_, token := f.user(t, "hero", user.RoleReader)

	status := func() bool {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me/newsletter", token)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp NewsletterStatusResponse
		unmarshall(t, rec, &resp)
		return resp.Subscribed
	}
	toggle := func(action string) bool {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/me/newsletter", token, marshallObj(t, NewsletterToggleRequest{Action: action}))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp NewsletterStatusResponse
		unmarshall(t, rec, &resp)
		return resp.Subscribed
	}

	assert.False(t, status())
	assert.True(t, toggle("subscribe"))
	assert.True(t, status())
	assert.False(t, toggle("unsubscribe"))
	assert.False(t, status())
}

func Test_userApi_admin(t *testing.T) {
	f := setup(t)
	admin, adminToken := f.user(t, "admin", user.RoleSuperAdmin)
	reader, readerToken := f.user(t, "reader", user.RoleReader)
	_, editorToken := f.user(t, "editor", user.RoleNewsEditor)

	forbidden := marshallObj(t, httpErr{Error: "permission denied"})
	bPtr := func(b bool) *bool { return &b }

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "Reader forbidden", method: http.MethodGet, path: "/v1/users", token: readerToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Editor forbidden", method: http.MethodGet, path: "/v1/users", token: editorToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Roles", method: http.MethodGet, path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marshallObj(t, user.Roles)},
		{
			name: "Retrieve unknown", method: http.MethodGet, path: "/v1/users/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Cannot deactivate oneself", method: http.MethodPut, path: "/v1/users/" + admin.ID, token: adminToken,
			body: marshallObj(t, user.UpdateUser{IsActive: bPtr(false)}), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Cannot demote oneself", method: http.MethodPut, path: "/v1/users/" + admin.ID, token: adminToken,
			body: marshallObj(t, user.UpdateUser{Role: user.RoleReader}), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "Cannot delete oneself", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "Cannot bulk delete oneself", method: http.MethodDelete, token: adminToken,
			path:     "/v1/users?" + url.Values{"id": {reader.ID, admin.ID}}.Encode(),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			f.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Query", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=READ", adminToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var users []user.User
		unmarshall(t, rec, &users)
		require.Len(t, users, 1)
		assert.Equal(t, reader.ID, users[0].ID)
	})

	t.Run("Promote reader", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+reader.ID, adminToken, marshallObj(t, user.UpdateUser{Role: user.RoleSchoolAdmin}))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshall(t, rec, &got)
		assert.Equal(t, user.RoleSchoolAdmin, got.Role)
	})

	t.Run("Create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", adminToken, marshallObj(t, user.NewUser{
			Username: "manager", Email: "manager@example.com", Role: user.RoleHiringManager,
			Password: "LolC@t123", PasswordConfirm: "LolC@t123",
		}))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.True(t, strings.Contains(rec.Body.String(), user.RoleHiringManager))
	})

	t.Run("Delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+reader.ID, adminToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		_, err := f.usrSvc.GetByID(context.Background(), reader.ID)
		assert.Error(t, err)
	})
}
