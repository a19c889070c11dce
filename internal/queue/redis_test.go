package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestStreamName(t *testing.T) {
	q := &RedisQueue{streamPrefix: "unitprice:stream:"}
	if got := q.StreamName("ProductPageTask"); got != "unitprice:stream:ProductPageTask" {
		t.Fatalf("want prefixed stream name, got %s", got)
	}
}

func TestTaskData(t *testing.T) {
	msg := redis.XMessage{
		ID: "1-0",
		Values: map[string]any{
			fieldTaskType: "ProductPageTask",
			fieldTaskData: `{"product_url":"/product/a-P1"}`,
		},
	}
	taskType, data, err := TaskData(msg)
	if err != nil {
		t.Fatalf("TaskData error: %v", err)
	}
	if taskType != "ProductPageTask" || string(data) != `{"product_url":"/product/a-P1"}` {
		t.Fatalf("unexpected payload %s %s", taskType, data)
	}

	if _, _, err := TaskData(redis.XMessage{ID: "2-0", Values: map[string]any{"init": "dummy"}}); err == nil {
		t.Fatal("want error for message without payload")
	}
}
