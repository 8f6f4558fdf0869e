package utils

import "testing"

func TestBuildTodosListCacheKey(t *testing.T) {
	got := BuildTodosListCacheKey("u1", 3, "pending")
	want := "todos:list:v1:user=u1:gen=3:filter=pending"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if BuildTodosListCacheKey("u1", 3, "all") == BuildTodosListCacheKey("u1", 4, "all") {
		t.Fatalf("generations must produce distinct keys")
	}
	if BuildTodosListCacheKey("u1", 0, "all") == BuildTodosListCacheKey("u2", 0, "all") {
		t.Fatalf("owners must produce distinct keys")
	}
}

func TestBuildTodosGenerationKey(t *testing.T) {
	if got := BuildTodosGenerationKey("u1"); got != "todos:gen:v1:user=u1" {
		t.Fatalf("unexpected key %q", got)
	}
}
