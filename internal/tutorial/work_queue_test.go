package tutorial

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"score_feed/internal/rabbitmq/rabbitmqtest"
)

func TestPublishTasks(t *testing.T) {
	broker := rabbitmqtest.NewBroker()
	env, out := newEnv(broker, "blocking_publisher")

	err := PublishTasks(context.Background(), env, WorkOptions{Queue: "sample_test", Messages: 3})
	require.NoError(t, err)

	assert.Equal(t, "Connected successfully...\n"+
		"Channel opened...\n"+
		"Queue declared....\n"+
		"Published message 1\n"+
		"Published message 2\n"+
		"Published message 3\n"+
		"Closed connection....\n", out.String())
	assert.Equal(t, 3, broker.QueueDepth("sample_test"))
	assert.Equal(t, 0, broker.Connections())
}

func TestWorkQueueDeliversExactlyN(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			broker := rabbitmqtest.NewBroker()

			pubEnv, _ := newEnv(broker, "blocking_publisher")
			require.NoError(t, PublishTasks(context.Background(), pubEnv, WorkOptions{Queue: "sample_test", Messages: n}))

			subEnv, out := newEnv(broker, "blocking_consumer")
			stop := background(t, func(ctx context.Context) error {
				return ConsumeTasks(ctx, subEnv, WorkOptions{Queue: "sample_test"})
			})

			waitFor(t, func() bool { return out.count(" [x] Done") == n }, "all tasks done")
			waitFor(t, func() bool { return broker.Unacked("sample_test") == 0 }, "all tasks acked")
			require.NoError(t, stop())

			for i := 1; i <= n; i++ {
				assert.Contains(t, out.String(), fmt.Sprintf(" [x] working on %q", fmt.Sprintf("task number %d", i)))
			}
			assert.Equal(t, n, out.count(" [x] working on"))
			assert.Equal(t, 0, broker.QueueDepth("sample_test"))
			assert.Equal(t, 0, broker.Connections())
		})
	}
}

func TestWorkerInterruptedMidTaskRequeues(t *testing.T) {
	broker := rabbitmqtest.NewBroker()

	pubEnv, _ := newEnv(broker, "blocking_publisher")
	require.NoError(t, PublishTasks(context.Background(), pubEnv, WorkOptions{Queue: "sample_test", Messages: 2}))

	subEnv, out := newEnv(broker, "blocking_consumer")
	stop := background(t, func(ctx context.Context) error {
		return ConsumeTasks(ctx, subEnv, WorkOptions{Queue: "sample_test", Work: time.Hour})
	})

	waitFor(t, func() bool { return out.count(" [x] working on") == 1 }, "first task started")
	assert.Equal(t, 1, broker.Unacked("sample_test"), "prefetch holds back the second task")

	require.NoError(t, stop())
	assert.Zero(t, out.count(" [x] Done"))
	assert.Equal(t, 2, broker.QueueDepth("sample_test"), "unfinished task went back to the queue")
}

func TestRedeclareWithSameProperties(t *testing.T) {
	broker := rabbitmqtest.NewBroker()

	for i := 0; i < 2; i++ {
		env, _ := newEnv(broker, "blocking_publisher")
		require.NoError(t, PublishTasks(context.Background(), env, WorkOptions{Queue: "sample_test", Messages: 1}))
	}
	assert.Equal(t, 2, broker.QueueDepth("sample_test"))
}

func TestConnectFailurePropagates(t *testing.T) {
	broker := rabbitmqtest.NewBroker()
	broker.FailDials(fmt.Errorf("dial tcp: connection refused"))

	env, out := newEnv(broker, "blocking_publisher")
	err := PublishTasks(context.Background(), env, WorkOptions{Queue: "sample_test", Messages: 1})

	require.Error(t, err)
	assert.Empty(t, out.String())
}
