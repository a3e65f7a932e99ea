package model

import (
	"errors"
	"testing"
)

// TestListNext tests continuation handling.
func TestListNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		json    string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{
			name:   "has more with cursor",
			json:   `{"object":"list","results":[],"has_more":true,"next_cursor":"abc"}`,
			want:   "abc",
			wantOK: true,
		},
		{
			name: "no more",
			json: `{"object":"list","results":[],"has_more":false,"next_cursor":null}`,
		},
		{
			name: "has_more false wins over a present cursor",
			json: `{"object":"list","results":[],"has_more":false,"next_cursor":"abc"}`,
		},
		{
			name:    "has more without cursor",
			json:    `{"object":"list","results":[],"has_more":true,"next_cursor":null}`,
			wantErr: true,
		},
		{
			name:    "has more with empty cursor",
			json:    `{"object":"list","results":[],"has_more":true,"next_cursor":""}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := DecodeList([]byte(tt.json))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok, err := l.Next()
			if tt.wantErr {
				if !errors.Is(err, ErrMissingField) {
					t.Errorf("expected ErrMissingField, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got (%q, %v), expected (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// TestDecodeList tests envelope validation.
func TestDecodeList(t *testing.T) {
	t.Parallel()

	t.Run("missing has_more", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeList([]byte(`{"object":"list","results":[]}`))
		if !errors.Is(err, ErrMissingField) {
			t.Errorf("expected ErrMissingField, got %v", err)
		}
	})

	t.Run("not a list", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeList([]byte(`{"object":"page","id":"p1"}`))
		if !errors.Is(err, ErrUnexpectedObject) {
			t.Errorf("expected ErrUnexpectedObject, got %v", err)
		}
	})

	t.Run("items", func(t *testing.T) {
		t.Parallel()

		l, err := DecodeList([]byte(`{"object":"list","has_more":false,"results":[
			{"object":"block","id":"a","type":"paragraph","paragraph":{}},
			{"object":"comment","id":"c","rich_text":[]}
		]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		items, err := l.Items()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("got %d items, expected 2", len(items))
		}
		if items[0].Kind() != KindBlock || items[1].Kind() != KindComment {
			t.Errorf("unexpected kinds %q, %q", items[0].Kind(), items[1].Kind())
		}
	})

	t.Run("bad item", func(t *testing.T) {
		t.Parallel()

		l, err := DecodeList([]byte(`{"object":"list","has_more":false,"results":[{"object":"block"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := l.Items(); err == nil {
			t.Error("expected error for item without id")
		}
	})
}
