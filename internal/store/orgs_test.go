package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifesciencesignals/radar/internal/contracts"
)

func TestListOrgs(t *testing.T) {
	mock := newMock(t)
	created := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM orgs").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_by", "created_at"}).
			AddRow("org-1", "acme.ie", "user-1", created).
			AddRow("org-2", "beta.co.uk", "", created))

	orgs, err := NewOrgRepository(mock).ListOrgs(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "acme.ie", orgs[0].Name)
	assert.Equal(t, "user-1", orgs[0].CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrgNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM orgs").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := NewOrgRepository(mock).GetOrg(context.Background(), "missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestMemberEmails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("JOIN profiles p").WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"email"}).
			AddRow("a@acme.ie").
			AddRow("b@acme.ie"))

	emails, err := NewOrgRepository(mock).MemberEmails(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@acme.ie", "b@acme.ie"}, emails)
}

func TestMemberEmailsQueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("JOIN profiles p").WillReturnError(errors.New("connection reset"))

	_, err := NewOrgRepository(mock).MemberEmails(context.Background(), "org-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestUpsertProfile(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("INSERT INTO profiles").WithArgs("user-1", "a@acme.ie").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewOrgRepository(mock).UpsertProfile(context.Background(), contracts.Profile{ID: "user-1", Email: "a@acme.ie"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrgForUserNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM org_members m").WithArgs("user-1").WillReturnError(pgx.ErrNoRows)

	_, err := NewOrgRepository(mock).OrgForUser(context.Background(), "user-1")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestCreateOrgWithOwner(t *testing.T) {
	mock := newMock(t)
	created := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orgs").WithArgs("acme.ie", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at"}).AddRow("org-1", "acme.ie", created))
	mock.ExpectExec("INSERT INTO org_members").WithArgs("org-1", "user-1", "owner").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	org, err := NewOrgRepository(mock).CreateOrgWithOwner(context.Background(), "acme.ie", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org.ID)
	assert.Equal(t, "user-1", org.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrgWithOwnerRollsBackOnMemberError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orgs").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at"}).AddRow("org-1", "acme.ie", time.Now()))
	mock.ExpectExec("INSERT INTO org_members").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := NewOrgRepository(mock).CreateOrgWithOwner(context.Background(), "acme.ie", "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add member")
	assert.NoError(t, mock.ExpectationsWereMet())
}
