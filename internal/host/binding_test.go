package host

import (
	"encoding/json"
	"testing"
)

type nopHost struct{}

func (nopHost) Auth() Auth { return nil }
func (nopHost) FS() FS     { return nil }
func (nopHost) KV() KV     { return nil }
func (nopHost) AI() AI     { return nil }

func TestSlotResolve(t *testing.T) {
	var slot Slot
	if _, ok := slot.Resolve(); ok {
		t.Fatalf("expected empty slot")
	}
	slot.Inject(nopHost{})
	if _, ok := slot.Resolve(); !ok {
		t.Fatalf("expected host after inject")
	}
	slot.Clear()
	if _, ok := slot.Resolve(); ok {
		t.Fatalf("expected empty slot after clear")
	}
}

func TestChatMessageContentForms(t *testing.T) {
	parts := ChatMessage{Role: "user", Parts: []ContentPart{
		{Type: PartFile, Path: "/resume.pdf"},
		{Type: PartText, Text: "score it"},
	}}
	data, err := json.Marshal(parts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"role":"user","content":[{"type":"file","path":"/resume.pdf"},{"type":"text","text":"score it"}]}`
	if string(data) != want {
		t.Fatalf("unexpected json %s", data)
	}

	var reply ChatMessage
	if err := json.Unmarshal([]byte(`{"role":"assistant","content":"{\"overallScore\":80}"}`), &reply); err != nil {
		t.Fatalf("unmarshal string content: %v", err)
	}
	if reply.ContentText() != `{"overallScore":80}` {
		t.Fatalf("unexpected text %q", reply.ContentText())
	}

	if err := json.Unmarshal([]byte(`{"role":"assistant","content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`), &reply); err != nil {
		t.Fatalf("unmarshal parts content: %v", err)
	}
	if reply.ContentText() != "ab" {
		t.Fatalf("unexpected flattened text %q", reply.ContentText())
	}
}
