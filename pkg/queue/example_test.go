package queue_test

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Example_retryPolicy shows how a task is scheduled after failed attempts.
func Example_retryPolicy() {
	task := queue.Task{BackoffDelay: 2 * time.Second, BackoffMax: time.Minute}
	for attempts := 1; attempts <= 3; attempts++ {
		task.AttemptsMade = attempts
		fmt.Println(task.RetryDelay())
	}
	// Output:
	// 2s
	// 4s
	// 8s
}

// Example_enqueue enqueues a high priority task into a named queue.
func Example_enqueue() {
	storage := queue.NewMemoryStorage()
	defer storage.Close()

	enqueuer, err := queue.NewEnqueuer(storage, queue.WithDefaultQueue("push-notifications"))
	if err != nil {
		panic(err)
	}

	type PushJob struct {
		NotificationID string `json:"notificationId"`
	}

	ctx := context.Background()
	if _, err := enqueuer.Enqueue(ctx, PushJob{NotificationID: "n1"}, queue.WithPriority(queue.PriorityHigh)); err != nil {
		panic(err)
	}

	stats, _ := storage.Stats(ctx, "push-notifications")
	fmt.Println("waiting:", stats.Waiting)
	// Output:
	// waiting: 1
}
