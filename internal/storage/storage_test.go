package storage

import (
	"errors"
	"regexp"
	"testing"
)

func TestNewRecipeImageKey(t *testing.T) {
	key := NewRecipeImageKey("PNG")

	if !regexp.MustCompile(`^uploads/recipe/[0-9a-v]{20}\.png$`).MatchString(key) {
		t.Errorf("NewRecipeImageKey() = %q, want uploads/recipe/<xid>.png", key)
	}
	if other := NewRecipeImageKey("png"); other == key {
		t.Error("NewRecipeImageKey() returned the same key twice")
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "uploads/recipe/a.jpg", want: "uploads/recipe/a.jpg"},
		{in: "uploads//recipe/./a.jpg", want: "uploads/recipe/a.jpg"},
		{in: "", wantErr: true},
		{in: "/etc/passwd", wantErr: true},
		{in: "../secret", wantErr: true},
		{in: "uploads/../../secret", wantErr: true},
		{in: `uploads\a.jpg`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("CleanKey(%q) error = %v, want ErrInvalidKey", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanKey(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("CleanKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct{ base, key, want string }{
		{"/media/", "uploads/recipe/a.jpg", "/media/uploads/recipe/a.jpg"},
		{"/media", "uploads/recipe/a.jpg", "/media/uploads/recipe/a.jpg"},
		{"https://cdn.example.com/bucket/", "/x.png", "https://cdn.example.com/bucket/x.png"},
	}
	for _, tt := range tests {
		if got := JoinURL(tt.base, tt.key); got != tt.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}
