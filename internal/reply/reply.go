// Package reply turns loosely shaped webhook responses into something the chat widget can show.
package reply

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// Outcome classifies how a webhook exchange ended.
type Outcome int

const (
	Ok Outcome = iota
	EmptyOk
	Error
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case EmptyOk:
		return "empty"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

const (
	// FallbackText is shown when the webhook answered 2xx but nothing readable was found.
	FallbackText = "I'm sorry, I couldn't process your request at the moment."
	// EmptyBodyText is shown when the webhook answered 2xx with an empty body.
	EmptyBodyText = "The server responded successfully but the response was empty. The workflow completed but returned no data."

	defaultFileName = "download"
	defaultMimeType = "application/octet-stream"

	maxDepth = 4
)

// CandidateKeys is the ordered table of fields probed for reply text.
var CandidateKeys = []string{
	"output", "response", "message", "text", "result", "answer", "reply",
	"content", "data", "body", "value", "chatResponse", "aiResponse",
	"assistant_response", "bot_response", "llm_response",
}

// FileAttachment is a downloadable file announced by the webhook.
type FileAttachment struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// NormalizedReply is what the bot said once the response shape has been resolved.
type NormalizedReply struct {
	Text        string           `json:"text"`
	Attachments []FileAttachment `json:"attachments,omitempty"`
	Outcome     Outcome          `json:"outcome"`
}

// Normalize extracts reply text and attachments from a successful (2xx) response body.
func Normalize(body []byte) NormalizedReply {
	body = bytes.TrimPrefix(body, utf8BOM)
	if !gjson.ValidBytes(body) {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return NormalizedReply{Text: EmptyBodyText, Outcome: EmptyOk}
		}
		return NormalizedReply{Text: text, Outcome: Ok}
	}

	doc := gjson.ParseBytes(bytes.TrimSpace(body))
	r := NormalizedReply{
		Text:        extractText(doc, 0),
		Attachments: extractAttachments(doc, 0),
	}
	if r.Text == "" {
		r.Text = FallbackText
		r.Outcome = EmptyOk
		return r
	}
	r.Outcome = Ok
	return r
}

var utf8BOM = []byte("\xef\xbb\xbf")

// Failed builds the terminal reply for a call that did not complete.
func Failed(text string) NormalizedReply {
	return NormalizedReply{Text: text, Outcome: Error}
}

func extractText(v gjson.Result, depth int) string {
	if depth > maxDepth {
		return ""
	}
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.Type == gjson.Number:
		return v.Raw
	case v.IsArray():
		items := v.Array()
		if len(items) == 0 {
			return ""
		}
		return extractText(items[0], depth+1)
	case v.IsObject():
		if text := probe(v); text != "" {
			return text
		}
		if nested := v.Get("data"); nested.IsObject() {
			if text := probe(nested); text != "" {
				return text
			}
		}
		return firstString(v)
	}
	return ""
}

// probe walks CandidateKeys and returns the first non-null scalar value.
// Objects, arrays and booleans under a candidate key do not count as text.
// An empty string still ends the walk; the caller then falls back to the scan.
func probe(obj gjson.Result) string {
	for _, key := range CandidateKeys {
		val := obj.Get(key)
		switch val.Type {
		case gjson.String:
			return val.Str
		case gjson.Number:
			return val.Raw
		}
	}
	return ""
}

func firstString(obj gjson.Result) string {
	var found string
	obj.ForEach(func(_, val gjson.Result) bool {
		if val.Type == gjson.String && strings.TrimSpace(val.Str) != "" {
			found = val.Str
			return false
		}
		return true
	})
	return found
}

func extractAttachments(v gjson.Result, depth int) []FileAttachment {
	if depth > maxDepth {
		return nil
	}
	if v.IsArray() {
		items := v.Array()
		if len(items) == 0 {
			return nil
		}
		return extractAttachments(items[0], depth+1)
	}
	if !v.IsObject() {
		return nil
	}

	if files := v.Get("files"); files.IsArray() {
		var out []FileAttachment
		for _, f := range files.Array() {
			if a, ok := attachmentFrom(f); ok {
				out = append(out, a)
			}
		}
		return out
	}
	if file := v.Get("file"); file.IsObject() {
		if a, ok := attachmentFrom(file); ok {
			return []FileAttachment{a}
		}
		return nil
	}

	url := firstNonEmpty(v, "download_url", "file_url")
	if url == "" {
		return nil
	}
	a := FileAttachment{
		Name:      orDefault(firstNonEmpty(v, "filename"), defaultFileName),
		URL:       url,
		MimeType:  orDefault(firstNonEmpty(v, "filetype"), defaultMimeType),
		SizeBytes: sizeOf(v, "filesize"),
	}
	if !safeURL(a.URL) {
		return nil
	}
	return []FileAttachment{a}
}

func attachmentFrom(f gjson.Result) (FileAttachment, bool) {
	if !f.IsObject() {
		return FileAttachment{}, false
	}
	a := FileAttachment{
		Name:      orDefault(firstNonEmpty(f, "name", "filename"), defaultFileName),
		URL:       firstNonEmpty(f, "url", "download_url", "link"),
		MimeType:  orDefault(firstNonEmpty(f, "type", "mimetype"), defaultMimeType),
		SizeBytes: sizeOf(f, "size", "filesize"),
	}
	if a.URL == "" || !safeURL(a.URL) {
		return FileAttachment{}, false
	}
	return a, true
}

func firstNonEmpty(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if val := obj.Get(k); val.Type == gjson.String && val.Str != "" {
			return val.Str
		}
	}
	return ""
}

func sizeOf(obj gjson.Result, keys ...string) int64 {
	for _, k := range keys {
		val := obj.Get(k)
		if val.Type != gjson.Number && val.Type != gjson.String {
			continue
		}
		if n := val.Int(); n > 0 {
			return n
		}
	}
	return 0
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// safeURL keeps links the page can render as plain downloads.
func safeURL(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}
