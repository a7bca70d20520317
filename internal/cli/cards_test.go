package cli

import "testing"

func TestRenderSession(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", `{"state":"empty","session":null}`},
		{"active", `{"state":"active","session":{"card_ids":["a","b"],"flipped_ids":["a"],"cards":[{"id":"a","title":"A","url":"https://a.com/","priority":0.9},{"id":"b","title":"B","url":"https://b.com/","priority":0.5}],"timestamp":1}}`},
		{"complete", `{"state":"complete","session":{"card_ids":["a"],"flipped_ids":["a"],"cards":[{"id":"a","title":"A","url":"https://a.com/","priority":0.9}],"timestamp":1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := renderSession([]byte(tc.body)); err != nil {
				t.Errorf("renderSession: %v", err)
			}
		})
	}
}

func TestRenderSessionBadJSON(t *testing.T) {
	if err := renderSession([]byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}
