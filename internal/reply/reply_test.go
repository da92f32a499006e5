package reply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		outcome Outcome
	}{
		{"json string", `"Hello there"`, "Hello there", Ok},
		{"json string keeps spacing", `"  padded  "`, "  padded  ", Ok},
		{"plain text", "Hi from the workflow", "Hi from the workflow", Ok},
		{"plain text trimmed", "\n  hello \n", "hello", Ok},
		{"reply field", `{"reply":"Hi there!"}`, "Hi there!", Ok},
		{"output beats response", `{"response":"second","output":"first"}`, "first", Ok},
		{"priority over document order", `{"answer":"late","text":"early"}`, "early", Ok},
		{"provider alias", `{"llm_response":"from llm"}`, "from llm", Ok},
		{"null candidate skipped", `{"output":null,"message":"fine"}`, "fine", Ok},
		{"empty candidate falls back to scan", `{"output":"","message":"fine"}`, "fine", Ok},
		{"empty candidate ends probing", `{"zzz":"a","output":"","text":"b"}`, "a", Ok},
		{"bom before json", "\xef\xbb\xbf{\"output\":\"hi\"}", "hi", Ok},
		{"number candidate", `{"result":42}`, "42", Ok},
		{"array first element", `["hi"]`, "hi", Ok},
		{"array of objects", `[{"output":"from n8n"},{"output":"ignored"}]`, "from n8n", Ok},
		{"nested data", `{"data":{"answer":"nested"}}`, "nested", Ok},
		{"top level beats nested", `{"data":{"answer":"nested"},"body":"top"}`, "top", Ok},
		{"any string fallback", `{"status":"done","count":3}`, "done", Ok},
		{"blank strings ignored in fallback", `{"a":"   ","b":"real"}`, "real", Ok},
		{"empty object", `{}`, FallbackText, EmptyOk},
		{"empty array", `[]`, FallbackText, EmptyOk},
		{"json null", `null`, FallbackText, EmptyOk},
		{"object without strings", `{"ok":true,"n":[1,2]}`, FallbackText, EmptyOk},
		{"empty body", ``, EmptyBodyText, EmptyOk},
		{"whitespace body", "  \n\t", EmptyBodyText, EmptyOk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]byte(tt.body))
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, tt.outcome, got.Outcome)
		})
	}
}

func TestNormalizeFilesArray(t *testing.T) {
	body := `{
		"output": "Here is your report",
		"files": [
			{"filename": "report.pdf", "download_url": "https://files.example.com/r.pdf", "mimetype": "application/pdf", "filesize": 2048},
			{"url": "https://files.example.com/blob"},
			{"name": "no-url.txt"},
			{"name": "script", "url": "javascript:alert(1)"}
		]
	}`

	got := Normalize([]byte(body))
	require.Equal(t, Ok, got.Outcome)
	assert.Equal(t, "Here is your report", got.Text)
	require.Len(t, got.Attachments, 2)

	assert.Equal(t, FileAttachment{
		Name:      "report.pdf",
		URL:       "https://files.example.com/r.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 2048,
	}, got.Attachments[0])
	assert.Equal(t, FileAttachment{
		Name:     "download",
		URL:      "https://files.example.com/blob",
		MimeType: "application/octet-stream",
	}, got.Attachments[1])
}

func TestNormalizeSingleFile(t *testing.T) {
	got := Normalize([]byte(`{"text":"ok","file":{"name":"a.png","link":"https://x.example/a.png","type":"image/png","size":"512"}}`))
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "a.png", got.Attachments[0].Name)
	assert.Equal(t, "image/png", got.Attachments[0].MimeType)
	assert.Equal(t, int64(512), got.Attachments[0].SizeBytes)
}

func TestNormalizeDirectDownloadURL(t *testing.T) {
	got := Normalize([]byte(`{"file_url":"https://x.example/cv.pdf","filename":"cv.pdf","filetype":"application/pdf"}`))
	// the URL itself is the first non-empty string, so it doubles as reply text
	assert.Equal(t, "https://x.example/cv.pdf", got.Text)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "cv.pdf", got.Attachments[0].Name)
	assert.Equal(t, "application/pdf", got.Attachments[0].MimeType)
}

func TestNormalizeAttachmentsWithoutText(t *testing.T) {
	got := Normalize([]byte(`[{"files":[{"url":"https://x.example/f"}]}]`))
	assert.Equal(t, EmptyOk, got.Outcome)
	assert.Equal(t, FallbackText, got.Text)
	assert.Len(t, got.Attachments, 1)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, TransientServiceText, StatusText(500, "anything at all"))
	assert.Equal(t, AuthErrorText, StatusText(401, ""))
	assert.Equal(t, AuthErrorText, StatusText(403, "nope"))
	assert.Equal(t, "Error: Unable to connect to the AI service (404). Workflow not found", StatusText(404, "Workflow not found"))
	assert.Equal(t, "Error: Unable to connect to the AI service (502). Please try again later.", StatusText(502, ""))
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "bad input", ErrorDetail([]byte(`{"message":"bad input"}`), "Bad Request"))
	assert.Equal(t, "boom", ErrorDetail([]byte(`{"error":"boom"}`), "Bad Request"))
	assert.Equal(t, "boom", ErrorDetail([]byte("\xef\xbb\xbf{\"error\":\"boom\"}"), "Bad Request"))
	assert.Equal(t, "", ErrorDetail([]byte(`{"code":1}`), "Bad Request"))
	assert.Equal(t, "upstream down", ErrorDetail([]byte("upstream down"), "Bad Gateway"))
	assert.Equal(t, "Bad Gateway", ErrorDetail(nil, "Bad Gateway"))
}

func TestTimeoutText(t *testing.T) {
	assert.Contains(t, TimeoutText(5*time.Minute), "over 5 minutes")
	assert.Contains(t, TimeoutText(time.Minute), "over 1 minute)")
	assert.Contains(t, TimeoutText(30*time.Second), "over 30 seconds")
}

func TestFailed(t *testing.T) {
	r := Failed(NetworkErrorText)
	assert.Equal(t, Error, r.Outcome)
	assert.Equal(t, NetworkErrorText, r.Text)
	assert.Equal(t, "error", r.Outcome.String())
}
