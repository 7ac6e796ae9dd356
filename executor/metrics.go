package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for monitoring executor behavior and performance.
// All metrics are labeled by "unit" so one process can run several machines.

var (
	// workersAlive tracks the number of running worker goroutines.
	workersAlive = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_workers_alive",
		Help: "The number of executor worker goroutines currently running",
	}, []string{"unit"})

	// workerBusy is 1 while the worker is executing an action, 0 while idle.
	workerBusy = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_worker_busy",
		Help: "Whether the executor worker is currently executing an action",
	}, []string{"unit"})

	// queueDepth tracks the number of tasks waiting to execute.
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_queue_depth",
		Help: "The number of submitted tasks not yet picked up by the worker",
	}, []string{"unit"})

	// tasksSubmitted counts tasks accepted by Submit.
	tasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_tasks_submitted_total",
		Help: "The total number of tasks submitted to the executor",
	}, []string{"unit"})

	// tasksCompleted counts tasks that ran to completion, faulted or not.
	tasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_tasks_completed_total",
		Help: "The total number of tasks that finished executing",
	}, []string{"unit"})

	// tasksCancelled counts tasks that ended cancelled, whether or not they
	// had started executing.
	tasksCancelled = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_tasks_cancelled_total",
		Help: "The total number of tasks that ended cancelled",
	}, []string{"unit"})

	// actionFaults counts actions that returned an error.
	actionFaults = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_action_faults_total",
		Help: "The total number of state actions that returned an error",
	}, []string{"unit"})

	// actionPanics counts actions the worker recovered a panic from.
	actionPanics = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_action_panics_total",
		Help: "The total number of state actions that panicked",
	}, []string{"unit"})

	// actionDuration measures wall-clock action execution time per state.
	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name: "packml_executor_action_duration_seconds",
		Help: "The time spent executing a state action",
		Buckets: []float64{
			0.001, // 1ms
			0.01,  // 10ms
			0.1,   // 100ms
			1,     // 1s
			10,    // 10s
			60,    // 1m
			300,   // 5m
		},
	}, []string{"unit", "state"})
)
