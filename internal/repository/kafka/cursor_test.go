// internal/repository/kafka/cursor_test.go
package kafka

import (
	"errors"
	"testing"

	"github.com/defineus/nakadi/internal/domain"
	"github.com/defineus/nakadi/internal/repository"
)

// Round-trip: decode(encode(x)) == x для представимых значений.
func TestCursor_PartitionRoundTrip(t *testing.T) {
	values := []int32{0, 1, 7, 42, 1<<31 - 1}
	for _, v := range values {
		got, err := toKafkaPartition(toNakadiPartition(v))
		if err != nil {
			t.Fatalf("round trip of %d: unexpected error: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip of %d: got %d", v, got)
		}
	}
}

func TestCursor_OffsetRoundTrip(t *testing.T) {
	values := []int64{0, 1, 100, 1<<62 - 1}
	for _, v := range values {
		got, err := toKafkaOffset(toNakadiOffset(v))
		if err != nil {
			t.Fatalf("round trip of %d: unexpected error: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip of %d: got %d", v, got)
		}
	}
}

func TestCursor_DecodePartitionInvalid(t *testing.T) {
	cases := []string{"", "abc", "-1", "1.5", "0x10", " 1", "99999999999999999999"}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			if _, err := toKafkaPartition(c); !errors.Is(err, repository.ErrInvalidPartitionID) {
				t.Errorf("toKafkaPartition(%q) = %v; want ErrInvalidPartitionID", c, err)
			}
		})
	}
}

func TestCursor_DecodeOffsetInvalid(t *testing.T) {
	cases := []string{"", "BEGIN", "-5", "12a", "+"}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			if _, err := toKafkaOffset(c); !errors.Is(err, repository.ErrMalformedOffset) {
				t.Errorf("toKafkaOffset(%q) = %v; want ErrMalformedOffset", c, err)
			}
		})
	}
}

func TestFromNakadiCursor(t *testing.T) {
	cases := []struct {
		name    string
		cursor  domain.Cursor
		want    kafkaCursor
		wantErr error
	}{
		{"ok", domain.Cursor{Partition: "3", Offset: "17"}, kafkaCursor{partition: 3, offset: 17}, nil},
		{"badPartition", domain.Cursor{Partition: "x", Offset: "17"}, kafkaCursor{}, repository.ErrInvalidPartitionID},
		{"badOffset", domain.Cursor{Partition: "3", Offset: "x"}, kafkaCursor{}, repository.ErrMalformedOffset},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := fromNakadiCursor(c.cursor)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("error = %v; want %v", err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("got %+v; want %+v", got, c.want)
			}
		})
	}
}
