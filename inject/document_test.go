package inject

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRender(t *testing.T) {
	doc := NewDocument("Demo <1>")
	require.NoError(t, doc.Inline(`var s = "</script><script>alert(1)";`))
	loaded := false
	require.NoError(t, doc.Reference(`/js/a.js?v=1&x="2"`, func(err error) {
		assert.NoError(t, err)
		loaded = true
	}))
	assert.True(t, loaded)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "<title>Demo &lt;1&gt;</title>")
	assert.Contains(t, out, `<script>var s = "<\/script><script>alert(1)";</script>`)
	assert.Contains(t, out, `<script src="/js/a.js?v=1&amp;x=&#34;2&#34;"></script>`)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("var s")), bytes.Index(buf.Bytes(), []byte("/js/a.js")))
}

func TestEscapeScript(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, `plain`},
		{`"</script>"`, `"<\/script>"`},
		{`"</SCRIPT>"`, `"<\/SCRIPT>"`},
		{`"</Script><script>alert(1)</sCrIpT>"`, `"<\/Script><script>alert(1)<\/sCrIpT>"`},
		{`<!-- x`, `<\!-- x`},
		{`a </scripts b`, `a <\/scripts b`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeScript(tt.in))
		})
	}
}

func TestDocumentInlineMixedCaseClose(t *testing.T) {
	doc := NewDocument("")
	require.NoError(t, doc.Inline(`var s = "</Script><script>alert(1)</script>";`))
	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, `<script>var s = "<\/Script><script>alert(1)<\/script>";</script>`)
	assert.Equal(t, 1, strings.Count(strings.ToLower(out), "</script>"))
}
