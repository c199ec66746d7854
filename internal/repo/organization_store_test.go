package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amcdesk/internal/listing"
	"amcdesk/internal/models"
)

func TestOrganizationCreateAndConflict(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()

	o := &models.Organization{Name: "  City Hospital ", Email: "Admin@City.example", GSTNumber: "29ABCDE1234F1Z5"}
	require.NoError(t, s.Organizations.Create(ctx, o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "City Hospital", o.Name)
	assert.Equal(t, "admin@city.example", o.Email)

	err := s.Organizations.Create(ctx, &models.Organization{Name: "Dup", Email: "ADMIN@city.example"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "organization already exists")

	got, err := s.Organizations.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "29ABCDE1234F1Z5", got.GSTNumber)
	assert.False(t, got.Archived)
}

func TestOrganizationListFiltersAndVisibility(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()

	a := &models.Organization{Name: "Apollo Clinic", Email: "a@example.com", City: "Pune"}
	b := &models.Organization{Name: "Fortis", Email: "b@example.com", City: "Mumbai"}
	c := &models.Organization{Name: "Old Apollo", Email: "c@example.com", City: "Pune"}
	for _, o := range []*models.Organization{a, b, c} {
		require.NoError(t, s.Organizations.Create(ctx, o))
	}
	require.NoError(t, s.Organizations.SetArchived(ctx, c.ID, true))

	env, err := s.Organizations.List(ctx, OrganizationFilter{Search: "APOLLO"}, listing.Page{})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, a.ID, env.Data[0].ID)

	env, err = s.Organizations.List(ctx, OrganizationFilter{Search: "apollo", Visibility: listing.VisibleAll}, listing.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.TotalCount)

	env, err = s.Organizations.List(ctx, OrganizationFilter{City: "pune", Visibility: listing.VisibleArchived}, listing.Page{})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, c.ID, env.Data[0].ID)

	found, err := s.Organizations.Search(ctx, "o", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Apollo Clinic", found[0].Name)
	assert.Equal(t, "Fortis", found[1].Name)
}

func TestOrganizationUpdateClearsFields(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()
	o := &models.Organization{Name: "Acme", Email: "acme@example.com", Phone: "123"}
	require.NoError(t, s.Organizations.Create(ctx, o))

	got, err := s.Organizations.Update(ctx, o.ID, &models.Organization{Name: "Acme Labs", Email: "acme@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Labs", got.Name)
	assert.Empty(t, got.Phone)

	_, err = s.Organizations.Update(ctx, "missing", &models.Organization{Name: "x", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrganizationDeleteCascades(t *testing.T) {
	s, gdb := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "Acme")
	other := seedOrganization(t, s, "Other")
	dev := seedDevice(t, s, org.ID, "d1", nil)
	keep := seedDevice(t, s, other.ID, "d2", nil)
	seedRequest(t, s, org.ID, dev.ID)
	seedRequest(t, s, other.ID, keep.ID)
	_, err := s.Users.AddMember(ctx, org.ID, MemberInput{Email: "m@example.com", Role: models.RoleViewer})
	require.NoError(t, err)

	require.NoError(t, s.Organizations.Delete(ctx, org.ID))

	count := func(model any) int64 {
		var n int64
		require.NoError(t, gdb.Model(model).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(1), count(&models.Organization{}))
	assert.Equal(t, int64(1), count(&models.Device{}))
	assert.Equal(t, int64(1), count(&models.ServiceRequest{}))
	assert.Equal(t, int64(0), count(&models.OrganizationUser{}))

	assert.ErrorIs(t, s.Organizations.Delete(ctx, org.ID), ErrNotFound)
}
