package shutdown

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager выполняет зарегистрированные функции остановки в обратном порядке,
// каждую с собственным таймаутом (settle). Таймаут не жёсткий: функция,
// игнорирующая ctx, задержит остановку.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	funcs []namedFunc
	once  sync.Once
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{timeout: timeout, logger: logger}
}

func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, namedFunc{name: name, fn: fn})
}

// Shutdown выполняется один раз; повторные вызовы ничего не делают.
func (m *Manager) Shutdown() {
	m.once.Do(m.run)
}

func (m *Manager) run() {
	m.logger.Info("starting graceful shutdown")
	m.mu.Lock()
	funcs := make([]namedFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		start := time.Now()
		err := f.fn(ctx)
		cancel()

		if err != nil {
			m.logger.Error("shutdown step failed",
				zap.String("name", f.name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			continue
		}
		m.logger.Info("shutdown step completed",
			zap.String("name", f.name),
			zap.Duration("duration", time.Since(start)))
	}
	m.logger.Info("graceful shutdown completed")
}

func HTTPServer(srv interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return srv.Shutdown
}

// Closer оборачивает io.Closer; ctx не учитывается.
func Closer(c io.Closer) func(context.Context) error {
	return func(context.Context) error {
		return c.Close()
	}
}
