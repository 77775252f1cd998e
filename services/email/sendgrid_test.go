package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/habari/core"
)

func Test_sendgridService_prepare(t *testing.T) {
	svc := sendgridService{from: mail.Address{Address: "noreply@example.com"}, subjPrefix: "[Habari] "}
	to := []mail.Address{{Name: "Jane", Address: "jane@example.com"}}

	tests := []struct {
		name    string
		msg     core.EmailMessage
		subject string
	}{
		{name: "prefixed", msg: core.EmailMessage{Subject: "Welcome", To: to}, subject: "[Habari] Welcome"},
		{name: "raw", msg: core.EmailMessage{Subject: "Exam results", To: to, RawSubject: true}, subject: "Exam results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := svc.prepare(tt.msg)
			if assert.Len(t, m.Personalizations, 1) {
				assert.Equal(t, tt.subject, m.Personalizations[0].Subject)
				assert.Equal(t, "jane@example.com", m.Personalizations[0].To[0].Address)
			}
			assert.Equal(t, "noreply@example.com", m.From.Address)
		})
	}
}
