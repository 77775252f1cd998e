package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/habari/core/contact"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
	"github.com/trezcool/habari/services/email"
)

func Test_contactApi_submit(t *testing.T) {
	f := setup(t)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest, body: marshallObj(t, contact.NewInquiry{}),
			wantData: marshallObj(t, map[string]string{
				"name":    "this field is required",
				"email":   "this field is required",
				"message": "this field is required",
			}),
		},
		{
			name: "unknown subject", wantCode: http.StatusBadRequest,
			body: marshallObj(t, contact.NewInquiry{Name: "Jane", Email: "jane@example.com", Subject: "lol", Message: "Hi"}),
		},
		{
			name: "submitted", wantCode: http.StatusCreated,
			body: marshallObj(t, contact.NewInquiry{Name: " Jane ", Email: "Jane@Example.com", Message: "When do admissions open?"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/contact/inquiries", tt.body)
			f.serve(req, rec)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusCreated {
				var inq contact.Inquiry
				unmarshall(t, rec, &inq)
				assert.Equal(t, f.site.ID, inq.SiteID)
				assert.Equal(t, "Jane", inq.Name)
				assert.Equal(t, "jane@example.com", inq.Email)
				assert.Equal(t, contact.SubjectGeneral, inq.Subject)
				assert.Equal(t, contact.StatusNew, inq.Status)
			}
		})
	}

	// without a primary email, nobody is notified
	assert.Empty(t, emailsvc.Outbox())

	t.Run("notifies the site", func(t *testing.T) {
		_, err := f.srv.deps.SiteSvc.SaveSettings(context.Background(), f.site.ID, site.UpdateSettings{PrimaryEmail: "office@example.com"})
		require.NoError(t, err)

		req, rec := newRequest(http.MethodPost, "/v1/contact/inquiries",
			marshallObj(t, contact.NewInquiry{Name: "Bob", Email: "bob@example.com", Subject: contact.SubjectAdmissions, Message: "Hello"}))
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		outbox := emailsvc.Outbox()
		require.Len(t, outbox, 1)
		assert.Equal(t, "office@example.com", outbox[0].To[0].Address)
		assert.Contains(t, outbox[0].Subject, "New contact message from Bob")
	})
}

func Test_contactApi_admin(t *testing.T) {
	f := setup(t)
	_, schoolToken := f.user(t, "school", user.RoleSchoolAdmin)
	_, hrToken := f.user(t, "hr", user.RoleHiringManager)

	var ids []string
	for _, name := range []string{"Jane", "Bob"} {
		inq, err := f.srv.deps.ContactSvc.Submit(context.Background(), f.site, contact.NewInquiry{
			Name: name, Email: "visitor@example.com", Subject: contact.SubjectGeneral, Message: "Hello",
		})
		require.NoError(t, err)
		ids = append(ids, inq.ID)
	}

	t.Run("contact area only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/inquiries", hrToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	list := func(t *testing.T, query string) []contact.Inquiry {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/inquiries"+query, schoolToken)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []contact.Inquiry
		unmarshall(t, rec, &got)
		return got
	}

	t.Run("mark as read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/inquiries/status", schoolToken,
			marshallObj(t, contact.SetStatus{IDs: ids[:1], Status: "lol"}))
		f.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newAuthRequest(http.MethodPost, "/v1/admin/inquiries/status", schoolToken,
			marshallObj(t, contact.SetStatus{IDs: ids[:1], Status: contact.StatusRead}))
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, CountResponse{Count: 1})}, rec)

		read := list(t, "?status=read")
		require.Len(t, read, 1)
		assert.Equal(t, ids[0], read[0].ID)
		assert.Len(t, list(t, "?site_id="+f.site.ID), 2)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/inquiries/"+ids[0], schoolToken)
		f.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/inquiries/"+ids[0], schoolToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "inquiry not found"})}, rec)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/admin/inquiries?id="+ids[1], schoolToken)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, CountResponse{Count: 1})}, rec)
		assert.Empty(t, list(t, ""))
	})
}
