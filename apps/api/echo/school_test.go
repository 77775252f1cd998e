package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core/school"
	"github.com/trezcool/habari/core/user"
)

func Test_schoolApi_pages(t *testing.T) {
	f := setup(t)
	_, schoolToken := f.user(t, "school", user.RoleSchoolAdmin)
	_, editorToken := f.user(t, "editor", user.RoleNewsEditor)

	t.Run("school area only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/pages", editorToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	create := func(t *testing.T, data school.PageData) school.Page {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/pages", schoolToken, marshallObj(t, data))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p school.Page
		unmarshall(t, rec, &p)
		return p
	}

	about := create(t, school.PageData{
		SiteID:      f.site.ID,
		Title:       "About Us",
		Content:     `<p>Founded in 1950.</p><script>alert("lol")</script>`,
		IsPublished: true,
	})
	assert.Equal(t, "about-us", about.Slug)
	assert.Contains(t, about.Content, "Founded in 1950.")
	assert.NotContains(t, about.Content, "<script")

	hidden := create(t, school.PageData{SiteID: f.site.ID, Title: "Admissions"})

	t.Run("duplicate slug", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/pages", schoolToken,
			marshallObj(t, school.PageData{SiteID: f.site.ID, Title: "Lol", Slug: "about-us"}))
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"slug": school.ErrSlugExists.Error()}),
		}, rec)
	})

	t.Run("public page", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/school/pages/about-us")
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got school.Page
		unmarshall(t, rec, &got)
		assert.Equal(t, about.ID, got.ID)

		req, rec = newRequest(http.MethodGet, "/v1/school/pages/"+hidden.Slug)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "page not found"})}, rec)
	})

	t.Run("publish", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/pages/"+hidden.ID, schoolToken,
			marshallObj(t, school.PageData{SiteID: f.site.ID, Title: "Admissions", IsPublished: true}))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newRequest(http.MethodGet, "/v1/school/pages/admissions")
		f.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bulk delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/pages?id="+about.ID+"&id="+hidden.ID, schoolToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, CountResponse{Count: 2})}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/pages", schoolToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallList(t)}, rec)
	})
}

func Test_schoolApi_teamAndTestimonials(t *testing.T) {
	f := setup(t)
	_, token := f.user(t, "school", user.RoleSchoolAdmin)

	members := []school.TeamMemberData{
		{Name: "Jane Doe", Title: "Principal", IsActive: true, Order: 1},
		{Name: "John Doe", Title: "Retired", IsActive: false},
	}
	for _, data := range members {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/team", token, marshallObj(t, data))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	testimonials := []school.TestimonialData{
		{Name: "Alice", Relationship: "Parent", Quote: "Great school!", IsFeatured: true},
		{Name: "Bob", Quote: "Not featured"},
	}
	for _, data := range testimonials {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/testimonials", token, marshallObj(t, data))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	t.Run("validation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/testimonials", token, marshallObj(t, school.TestimonialData{Name: "Lol"}))
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"quote": "this field is required"}),
		}, rec)
	})

	t.Run("team shows active members", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/school/team")
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []school.TeamMember
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "Jane Doe", got[0].Name)
	})

	t.Run("home shows featured testimonials", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/school/home")
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got school.Home
		unmarshall(t, rec, &got)
		require.Len(t, got.Testimonials, 1)
		assert.Equal(t, "Alice", got.Testimonials[0].Name)
	})
}
