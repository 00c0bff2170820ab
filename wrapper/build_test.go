package wrapper

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/models"
	"github.com/problame/forward-as-attachment-mta/parser"
)

var buildTime = time.Date(2021, time.March, 14, 15, 9, 26, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		SenderEmail:        "shim@example.com",
		RecipientEmail:     "operator@example.com",
		SMTPHost:           "relay.example.com:587",
		SMTPUsername:       "user",
		SMTPPassword:       "secret",
		SMTPTimeoutSeconds: 30,
	}
}

func testIdentity() models.LocalIdentity {
	return models.LocalIdentity{
		Hostname:           "host.test",
		UID:                101,
		GID:                102,
		EUID:               101,
		EGID:               102,
		Username:           "cron",
		Groupname:          "cron",
		EffectiveUsername:  "cron",
		EffectiveGroupname: "cron",
		Platform:           "linux/amd64",
	}
}

func sendmailArgs(t *testing.T, argv ...string) *arguments.SendmailArgs {
	t.Helper()
	args := new(arguments.SendmailArgs)
	require.NoError(t, args.Populate(argv))
	require.NoError(t, args.Verify())
	return args
}

func buildWrapper(t *testing.T, raw string, argv ...string) *models.OutboundMail {
	t.Helper()
	out, err := Build(parser.Parse([]byte(raw)), sendmailArgs(t, argv...), testConfig(), nil, testIdentity(), buildTime)
	require.NoError(t, err)
	return out
}

// wrapperParts parses a wrapper message and returns the root entity plus
// the parts with their bodies buffered, transfer encoding already undone.
func wrapperParts(t *testing.T, data []byte) (*message.Entity, []*message.Entity, [][]byte) {
	t.Helper()
	root, err := message.Read(bytes.NewReader(data))
	require.NoError(t, err)
	mr := root.MultipartReader()
	require.NotNil(t, mr, "wrapper must be multipart")
	var parts []*message.Entity
	var bodies [][]byte
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		parts = append(parts, p)
		bodies = append(bodies, body)
	}
	return root, parts, bodies
}

func countFields(h message.Header, key string) int {
	fields := h.FieldsByKey(key)
	n := 0
	for fields.Next() {
		n++
	}
	return n
}

func TestBuildAddressingComesFromConfigAlone(t *testing.T) {
	raw := "From: attacker@evil.example\n" +
		"To: victim@example.org\n" +
		"Cc: list@example.org\n" +
		"Reply-To: attacker@evil.example\n" +
		"Bcc: hidden@example.org\n" +
		"Subject: who do you trust\n" +
		"\n" +
		"hello\n"
	out := buildWrapper(t, raw, "sendmail", "-t", "-fattacker@evil.example", "victim@example.org")

	assert.Equal(t, "shim@example.com", out.EnvelopeFrom)
	assert.Equal(t, "operator@example.com", out.EnvelopeTo)

	root, _, _ := wrapperParts(t, out.Data)
	mh := mail.Header{Header: root.Header}

	from, err := mh.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "shim@example.com", from[0].Address)

	to, err := mh.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "operator@example.com", to[0].Address)

	assert.Equal(t, 1, countFields(root.Header, "From"))
	assert.Equal(t, 1, countFields(root.Header, "To"))
	assert.Empty(t, root.Header.Get("Cc"))
	assert.Empty(t, root.Header.Get("Bcc"))
	assert.Empty(t, root.Header.Get("Reply-To"))
}

func TestBuildEmbedsOriginalVerbatim(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"ascii with trailing newline", "From: cron@host\nSubject: job\n\nexit 1\n"},
		{"no trailing newline", "From: cron@host\nSubject: job\n\nexit 1"},
		{"crlf line endings", "From: a@b\r\nSubject: s\r\n\r\nbody\r\n"},
		{"eight bit bytes", "From: a@b\nSubject: übung\n\ngrün ist schön\n"},
		{"large body", "Subject: big\n\n" + strings.Repeat("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcde\n", 200)},
		{"not a message at all", "complete garbage\nwithout any structure\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := buildWrapper(t, tc.raw, "sendmail", "-t")
			_, parts, bodies := wrapperParts(t, out.Data)
			require.Len(t, parts, 3)

			ctype, _, err := parts[1].Header.ContentType()
			require.NoError(t, err)
			assert.Equal(t, "message/rfc822", ctype)
			disp, dispParams, err := parts[1].Header.ContentDisposition()
			require.NoError(t, err)
			assert.Equal(t, "inline", disp)
			assert.Equal(t, "original.eml", dispParams["filename"])
			assert.Equal(t, []byte(tc.raw), bodies[1])

			ctype, _, err = parts[2].Header.ContentType()
			require.NoError(t, err)
			assert.Equal(t, "application/octet-stream", ctype)
			disp, dispParams, err = parts[2].Header.ContentDisposition()
			require.NoError(t, err)
			assert.Equal(t, "attachment", disp)
			assert.Equal(t, "stdin.eml", dispParams["filename"])
			assert.Equal(t, []byte(tc.raw), bodies[2])
		})
	}
}

func TestBuildEmptyInput(t *testing.T) {
	out := buildWrapper(t, "", "sendmail", "-t", "root")
	root, parts, bodies := wrapperParts(t, out.Data)
	require.Len(t, parts, 3)
	assert.Empty(t, bodies[1])
	assert.Empty(t, bodies[2])

	mh := mail.Header{Header: root.Header}
	subject, err := mh.Subject()
	require.NoError(t, err)
	assert.Equal(t, "???@host.test: (no subject)", subject)
}

func TestBuildWrapperHeader(t *testing.T) {
	out := buildWrapper(t, "Subject: s\n\nb\n", "sendmail", "root")
	root, _, _ := wrapperParts(t, out.Data)
	mh := mail.Header{Header: root.Header}

	date, err := mh.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(buildTime), "Date header %s does not match build time", date)

	assert.Regexp(t, `^<[0-9A-HJKMNP-TV-Z]{26}@host\.test>$`, root.Header.Get("Message-Id"))
	assert.Equal(t, "1.0", root.Header.Get("MIME-Version"))
	assert.Equal(t, "forward-as-attachment-mta", root.Header.Get("X-Mailer"))

	ctype, params, err := root.Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", ctype)
	assert.NotEmpty(t, params["boundary"])
}

func TestBuildMessageIdsDiffer(t *testing.T) {
	a := buildWrapper(t, "", "sendmail")
	b := buildWrapper(t, "", "sendmail")
	ra, _, _ := wrapperParts(t, a.Data)
	rb, _, _ := wrapperParts(t, b.Data)
	assert.NotEqual(t, ra.Header.Get("Message-Id"), rb.Header.Get("Message-Id"))
}

func TestBuildSummaryPart(t *testing.T) {
	out := buildWrapper(t, "Subject: s\n\nb\n", "sendmail", "-FCronDaemon", "-i", "root")
	_, parts, bodies := wrapperParts(t, out.Data)

	ctype, params, err := parts[0].Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", ctype)
	assert.Equal(t, "utf-8", params["charset"])

	text := string(bodies[0])
	assert.Contains(t, text, `A process on host "host.test" invoked the sendmail binary.`)
	assert.Contains(t, text, `Invocation args: ["sendmail" "-FCronDaemon" "-i" "root"]`)
	assert.Contains(t, text, "uid:101 gid:102 euid:101 egid:102")
	assert.Contains(t, text, "username: cron")
	assert.Contains(t, text, "hostname: host.test")
	assert.Contains(t, text, "platform: linux/amd64")
}

func TestBuildWarnsAboutConfigPermissions(t *testing.T) {
	m := parser.Parse([]byte("Subject: s\n\nb\n"))
	args := sendmailArgs(t, "sendmail", "root")

	for _, tc := range []struct {
		name string
		src  *config.Source
		want string
	}{
		{
			"world readable",
			&config.Source{Path: "/etc/x.toml", Mode: 0644, ModeKnown: true},
			"WARNING: the config file contains SMTP credentials and has too-lax permissions: -rw-r--r--",
		},
		{
			"unknown mode",
			&config.Source{Path: "/etc/x.toml"},
			"WARNING: could not determine permissions of the config file",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Build(m, args, testConfig(), tc.src, testIdentity(), buildTime)
			require.NoError(t, err)
			_, _, bodies := wrapperParts(t, out.Data)
			assert.Contains(t, string(bodies[0]), tc.want)
		})
	}

	t.Run("owner only", func(t *testing.T) {
		src := &config.Source{Path: "/etc/x.toml", Mode: 0600, ModeKnown: true}
		out, err := Build(m, args, testConfig(), src, testIdentity(), buildTime)
		require.NoError(t, err)
		_, _, bodies := wrapperParts(t, out.Data)
		assert.NotContains(t, string(bodies[0]), "WARNING")
	})
}

func TestBuildReEncodesUnattachablePlainText(t *testing.T) {
	longLine := strings.Repeat("x", 1200)
	raw := "Subject: nightly report\n" +
		"X-Cron-Env: <SHELL=/bin/sh>\n" +
		"Content-Type: text/plain; charset=iso-8859-1\n" +
		"\n" +
		longLine + " caf\xe9\n"
	out := buildWrapper(t, raw, "sendmail", "root")
	_, parts, bodies := wrapperParts(t, out.Data)
	require.Len(t, parts, 3)

	ctype, _, err := parts[1].Header.ContentType()
	require.NoError(t, err)
	require.Equal(t, "message/rfc822", ctype)

	// the copy keeps the original header order
	subjectIdx := bytes.Index(bodies[1], []byte("Subject: nightly report"))
	cronIdx := bytes.Index(bodies[1], []byte("X-Cron-Env: <SHELL=/bin/sh>"))
	require.GreaterOrEqual(t, subjectIdx, 0)
	require.GreaterOrEqual(t, cronIdx, 0)
	assert.Less(t, subjectIdx, cronIdx)

	embedded, err := message.Read(bytes.NewReader(bodies[1]))
	require.NoError(t, err)
	ctype, params, err := embedded.Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", ctype)
	assert.Equal(t, "utf-8", params["charset"])
	body, err := io.ReadAll(embedded.Body)
	require.NoError(t, err)
	assert.Equal(t, longLine+" café\n", string(body))

	assert.Equal(t, []byte(raw), bodies[2])
}

func TestBuildSkipsInlineForUnattachableNonText(t *testing.T) {
	raw := "Content-Type: application/json\n\n{\"blob\": \"" + strings.Repeat("y", 1100) + "\"}\n"
	out := buildWrapper(t, raw, "sendmail", "root")
	_, parts, bodies := wrapperParts(t, out.Data)
	require.Len(t, parts, 2)

	ctype, _, err := parts[1].Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", ctype)
	assert.Equal(t, []byte(raw), bodies[1])
}

func TestIdentityEncoding(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  string
		cte  string
		ok   bool
	}{
		{"plain ascii", "Subject: s\n\nshort\n", "", true},
		{"eight bit", "Subject: s\n\ngrün\n", "binary", true},
		{"max line length", strings.Repeat("a", 998) + "\n", "", true},
		{"line too long", strings.Repeat("a", 999) + "\n", "", false},
		{"long line at eof", strings.Repeat("a", 999), "", false},
		{"crlf does not count", strings.Repeat("a", 998) + "\r\n", "", true},
		{"nul byte", "a\x00b\n", "", false},
		{"empty", "", "", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cte, ok := identityEncoding([]byte(tc.raw))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.cte, cte)
			}
		})
	}
}

func TestContentTypeOfOriginal(t *testing.T) {
	for _, tc := range []struct {
		name    string
		headers string
		ctype   string
	}{
		{"absent means plain text", "Subject: s\n\n", "text/plain"},
		{"case insensitive", "Content-Type: TEXT/Plain; charset=UTF-8\n\n", "text/plain"},
		{"duplicate is ambiguous", "Content-Type: text/plain\nContent-Type: text/html\n\n", ""},
		{"unreadable", "Content-Type: completely broken\n\n", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctype, _ := contentType(parser.Parse([]byte(tc.headers)))
			assert.Equal(t, tc.ctype, ctype)
		})
	}
}
