package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/storage/database/sqlxrepos"
	"github.com/trezcool/habari/tests"
)

func TestSearchIsLiteral(t *testing.T) {
	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))
	testutil.CreateUser(t, repo, "jane_doe", "jane@example.com", "", user.RoleReader, true)
	testutil.CreateUser(t, repo, "janexdoe", "x@example.com", "", user.RoleReader, true)
	testutil.CreateUser(t, repo, "100%", `back\slash@example.com`, "", user.RoleReader, true)

	tests := []struct {
		search string
		want   []string
	}{
		{search: "e_d", want: []string{"jane_doe"}},
		{search: "%", want: []string{"100%"}},
		{search: "0%", want: []string{"100%"}},
		{search: `k\s`, want: []string{"100%"}},
		{search: "_", want: []string{"jane_doe"}},
		{search: "JANE", want: []string{"jane_doe", "janexdoe"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			usrs, err := repo.QueryUsers(context.Background(), user.QueryFilter{Search: tt.search}, nil)
			require.NoError(t, err)
			names := make([]string, 0, len(usrs))
			for _, u := range usrs {
				names = append(names, u.Username)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}
