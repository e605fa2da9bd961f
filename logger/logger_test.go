package logger

import "testing"

func TestInit_InvalidLevel(t *testing.T) {
	if err := Init("loud", false); err == nil {
		t.Fatal("Expected an error for an unknown level")
	}
}

func TestInit_Development(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	if err := Init("debug", true); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Log == nil {
		t.Fatal("Log should be set after Init")
	}
	Log.Debugf("logger test %d", 1)
}
