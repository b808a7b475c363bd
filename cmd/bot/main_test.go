package main

import "testing"

func TestWatchingStatus(t *testing.T) {
	if got := watchingStatus(""); got != "Voice Chats" {
		t.Fatalf("unexpected status without release: %q", got)
	}
	if got := watchingStatus("v42"); got != "Voice Chats : v42" {
		t.Fatalf("unexpected status with release: %q", got)
	}
}
