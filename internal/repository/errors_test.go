// internal/repository/errors_test.go
package repository

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrappingAndKinds(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	cases := []struct {
		name string
		err  *Error
		kind Kind
		text string
	}{
		{"unavailable", Unavailable("list topics", cause), KindUnavailable, "repository unavailable: list topics: dial tcp: connection refused"},
		{"topicCreation", TopicCreation("create topic", cause), KindTopicCreation, "topic creation failed: create topic: dial tcp: connection refused"},
		{"publish", Publish("send event", cause), KindPublish, "publish failed: send event: dial tcp: connection refused"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.err.Error(); got != c.text {
				t.Errorf("Error() = %q; want %q", got, c.text)
			}
			if !errors.Is(c.err, cause) {
				t.Error("cause must survive the wrap")
			}
			if !IsKind(c.err, c.kind) {
				t.Errorf("IsKind(%v) = false", c.kind)
			}
		})
	}
}

func TestIsKindThroughWrapChain(t *testing.T) {
	err := fmt.Errorf("startup: %w", Unavailable("open offset client", errors.New("no brokers")))
	if !IsKind(err, KindUnavailable) {
		t.Error("IsKind must see through fmt.Errorf wrapping")
	}
	if IsKind(err, KindPublish) {
		t.Error("wrong kind must not match")
	}
	if IsKind(errors.New("plain"), KindUnavailable) {
		t.Error("plain error must not match any kind")
	}
}

func TestErrorWithoutCause(t *testing.T) {
	e := &Error{Kind: KindPublish, Op: "send event"}
	if got, want := e.Error(), "publish failed: send event"; got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
	if e.Unwrap() != nil {
		t.Error("Unwrap of cause-less error must be nil")
	}
}
