package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	pending  []prometheus.Collector
	registry = prometheus.NewRegistry()
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister 注册全部指标（仅执行一次）
func MustRegister() {
	once.Do(func() {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if len(pending) > 0 {
			registry.MustRegister(pending...)
		}
	})
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	MustRegister()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
