package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates basic metrics configuration.
func Example_basicUsage() {
	// Create a separate registry for this example
	registry := NewRegistry(prometheus.NewRegistry())

	listener := NewListener("example", registry)
	listener.OnFibersCreated(264)
	listener.OnThreadsCreated(4)

	fmt.Println(promtest.ToFloat64(registry.Fibers.WithLabelValues("example")))
	fmt.Println(promtest.ToFloat64(registry.Workers.WithLabelValues("example")))

	// Output:
	// 264
	// 4
}

// Example_configuration demonstrates different metrics configurations.
func Example_configuration() {
	defaultConfig := DefaultConfig()
	fmt.Printf("Default enabled: %v\n", defaultConfig.Enabled)
	fmt.Printf("Default namespace: %s\n", defaultConfig.Namespace)

	disabled := Config{Enabled: false}
	fmt.Printf("Listener when disabled: %v\n", ListenerFor(disabled, "x"))

	// Output:
	// Default enabled: true
	// Default namespace: fiberflow
	// Listener when disabled: <nil>
}
