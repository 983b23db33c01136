package errx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestWrapExternalClassifiesTimeouts(t *testing.T) {
	err := WrapExternal(fmt.Errorf("call: %w", context.DeadlineExceeded))
	if KindOf(err) != KindTimeout {
		t.Errorf("deadline errors must classify as timeout, got %v", KindOf(err))
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout should see through the wrap")
	}

	err = WrapExternal(errors.New("connection refused"))
	if KindOf(err) != KindNetwork {
		t.Errorf("other failures classify as network, got %v", KindOf(err))
	}
	if IsTimeout(err) {
		t.Error("network failure must not read as timeout")
	}
}

func TestWrapSearchKeepsTimeoutDistinct(t *testing.T) {
	if KindOf(WrapSearch(context.DeadlineExceeded)) != KindTimeout {
		t.Error("search timeout should stay a timeout")
	}
	if KindOf(WrapSearch(errors.New("index down"))) != KindUpstreamSearch {
		t.Error("search failure should classify as upstream search")
	}
}

func TestWrapRedis(t *testing.T) {
	if KindOf(WrapRedis(redis.Nil)) != KindNotFound {
		t.Error("redis.Nil should classify as not found")
	}
	if KindOf(WrapRedis(errors.New("connection reset"))) != KindStorage {
		t.Error("other redis errors should classify as storage")
	}
	if WrapRedis(nil) != nil {
		t.Error("nil in, nil out")
	}
}

func TestAppErrorChain(t *testing.T) {
	base := errors.New("boom")
	wrapped := WrapNetwork(fmt.Errorf("outer: %w", base))

	if !errors.Is(wrapped, base) {
		t.Error("errors.Is should reach the base error")
	}
	var ae *AppError
	if !errors.As(wrapped, &ae) {
		t.Fatal("errors.As should find the AppError")
	}
	if ae.Message != NetworkErrorMessage {
		t.Errorf("message: %q", ae.Message)
	}
}

func TestValidation(t *testing.T) {
	err := Validation("cart is empty")
	if !IsValidation(err) {
		t.Error("validation errors should be recognizable")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("plain errors are not validation errors")
	}
}
