package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
	"github.com/trezcool/habari/core/user"
)

func Test_newEntry(t *testing.T) {
	errBoom := errors.New("boom")
	usr := user.User{ID: "u1", Username: "awe", Email: "awe@example.com"}
	st := site.Site{ID: "s1", Domain: "example.com"}

	tests := []struct {
		name       string
		args       []interface{}
		wantErr    error
		wantDomain string
		wantFields map[string]interface{}
	}{
		{name: "no args", wantFields: map[string]interface{}{}},
		{
			name:       "everything",
			args:       []interface{}{errBoom, &usr, st, map[string]interface{}{"article": "a1"}, 42},
			wantErr:    errBoom,
			wantDomain: "example.com",
			wantFields: map[string]interface{}{
				"article": "a1", "site": "example.com", "site_id": "s1", "user": "awe", "extra": []interface{}{42},
			},
		},
		{
			name:       "second error is extra",
			args:       []interface{}{errBoom, errors.New("bam"), nil},
			wantErr:    errBoom,
			wantFields: map[string]interface{}{"extra": []interface{}{"bam"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntry("msg", tt.args)
			assert.Equal(t, "msg", e.msg)
			assert.Equal(t, tt.wantErr, e.err)
			assert.Equal(t, tt.wantDomain, e.domain)
			assert.Equal(t, tt.wantFields, e.fields)
		})
	}
}

func TestRollbarLogger(t *testing.T) {
	conf := &core.Config{Debug: true}
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)

	logger.Info("newsletter sent", site.Site{ID: "s1", Domain: "example.com"}, map[string]interface{}{"sent": 2})
	assert.Equal(t, "INFO [example.com] newsletter sent sent=2 site_id=s1\n", buf.String())

	buf.Reset()
	logger.Debug("visible in debug")
	assert.Equal(t, "DEBUG visible in debug\n", buf.String())

	buf.Reset()
	logger.debug = false
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}
