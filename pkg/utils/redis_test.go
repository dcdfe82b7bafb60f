package utils

import (
	"context"
	"testing"
	"time"
)

func TestFixedWindowScriptInitialized(t *testing.T) {
	if fixedWindowScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestIncrFixedWindow_ValidatesInput(t *testing.T) {
	if _, _, err := IncrFixedWindow(context.Background(), nil, "k", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
