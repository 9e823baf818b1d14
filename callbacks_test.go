package ttylog_test

import (
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dianlight/ttylog"
	"github.com/stretchr/testify/suite"
)

type CallbackSuite struct {
	suite.Suite
	logger *ttylog.Logger
}

func (suite *CallbackSuite) SetupTest() {
	ttylog.RestartProcessor()

	logger, err := ttylog.New(
		ttylog.WithEnvironment(fakeEnv("linux", nil, false)),
		ttylog.WithOutput(io.Discard),
		ttylog.WithPID(99),
		ttylog.WithCallStackCapture(stubCapture),
	)
	suite.Require().NoError(err)
	suite.logger = logger
}

func (suite *CallbackSuite) TearDownTest() {
	ttylog.ClearAllCallbacks()
}

func (suite *CallbackSuite) TestRegisterCallback() {
	var (
		mu       sync.Mutex
		received ttylog.Event
		executed bool
	)

	id := ttylog.RegisterCallback(ttylog.LevelError, func(ev ttylog.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = ev
		executed = true
	})
	suite.NotEmpty(id)
	suite.Equal(1, ttylog.CallbackCount(ttylog.LevelError))

	suite.logger.Error("test error message", 7)

	suite.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return executed
	}, 2*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	suite.Equal("ERROR", received.Level)
	suite.Equal("test error message 7", received.Message())
	suite.Equal(99, received.PID)
	suite.True(strings.HasSuffix(received.FileName, "callbacks_test.go"))
	suite.Equal("TestRegisterCallback", received.FunctionName)
	suite.NotZero(received.LineNumber)
	suite.NotZero(received.StartTime)
	suite.Empty(received.CallStack)
}

func (suite *CallbackSuite) TestCallbackReceivesBacktrace() {
	got := make(chan ttylog.Event, 1)
	ttylog.RegisterCallback(ttylog.LevelWarn, func(ev ttylog.Event) {
		got <- ev
	})

	suite.logger.Warns("with stack")

	select {
	case ev := <-got:
		suite.Equal("STACK", ev.CallStack)
		suite.Equal("with stack", ev.Message())
	case <-time.After(2 * time.Second):
		suite.Fail("callback not executed")
	}
}

func (suite *CallbackSuite) TestCallbackOnlyForItsLevel() {
	var count atomic.Int32
	ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {
		count.Add(1)
	})

	suite.logger.Error("not info")
	suite.logger.Warn("not info")
	suite.logger.Info("info")

	suite.Eventually(func() bool { return count.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	suite.Equal(int32(1), count.Load())
}

func (suite *CallbackSuite) TestCallbackRespectsLevelFilter() {
	var count atomic.Int32
	ttylog.RegisterCallback(ttylog.LevelDebug, func(ttylog.Event) {
		count.Add(1)
	})

	suite.logger.SetLevel(ttylog.LevelInfo)
	suite.logger.Debug("filtered")

	time.Sleep(100 * time.Millisecond)
	suite.Equal(int32(0), count.Load())
}

func (suite *CallbackSuite) TestUnregisterCallback() {
	var executed atomic.Bool

	id := ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {
		executed.Store(true)
	})
	suite.Equal(1, ttylog.CallbackCount(ttylog.LevelInfo))

	suite.True(ttylog.UnregisterCallback(ttylog.LevelInfo, id))
	suite.Equal(0, ttylog.CallbackCount(ttylog.LevelInfo))

	suite.logger.Info("test message")
	time.Sleep(100 * time.Millisecond)
	suite.False(executed.Load())

	suite.False(ttylog.UnregisterCallback(ttylog.LevelInfo, "non-existent"))
}

func (suite *CallbackSuite) TestMultipleCallbacks() {
	var first, second atomic.Int32

	id1 := ttylog.RegisterCallback(ttylog.LevelWarn, func(ttylog.Event) { first.Add(1) })
	id2 := ttylog.RegisterCallback(ttylog.LevelWarn, func(ttylog.Event) { second.Add(1) })
	suite.NotEqual(id1, id2)
	suite.Equal(2, ttylog.CallbackCount(ttylog.LevelWarn))

	suite.logger.Warn("test warning")

	suite.Eventually(func() bool {
		return first.Load() == 1 && second.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func (suite *CallbackSuite) TestClearCallbacks() {
	ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {})
	ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {})
	ttylog.RegisterCallback(ttylog.LevelError, func(ttylog.Event) {})

	ttylog.ClearCallbacks(ttylog.LevelInfo)
	suite.Equal(0, ttylog.CallbackCount(ttylog.LevelInfo))
	suite.Equal(1, ttylog.CallbackCount(ttylog.LevelError))

	ttylog.ClearAllCallbacks()
	suite.Equal(0, ttylog.CallbackCount(ttylog.LevelError))
}

func (suite *CallbackSuite) TestCallbackPanicRecovery() {
	var after atomic.Bool

	ttylog.RegisterCallback(ttylog.LevelError, func(ttylog.Event) {
		panic("test panic in callback")
	})
	ttylog.RegisterCallback(ttylog.LevelError, func(ttylog.Event) {
		after.Store(true)
	})

	suite.NotPanics(func() {
		suite.logger.Error("trigger panic")
	})
	suite.Eventually(after.Load, 2*time.Second, 20*time.Millisecond)
}

func (suite *CallbackSuite) TestShutdownDrainsQueue() {
	var count atomic.Int32
	ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {
		count.Add(1)
	})

	for i := 0; i < 10; i++ {
		suite.logger.Info("queued", i)
	}
	ttylog.Shutdown()

	suite.Eventually(func() bool { return count.Load() == 10 }, 2*time.Second, 20*time.Millisecond)
}

func (suite *CallbackSuite) TestShutdownFromCallback() {
	returned := make(chan struct{})
	ttylog.RegisterCallback(ttylog.LevelError, func(ttylog.Event) {
		ttylog.Shutdown()
		close(returned)
	})

	suite.logger.Error("stop from inside")

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		suite.FailNow("Shutdown inside a callback did not return")
	}
	suite.Equal(0, ttylog.CallbackCount(ttylog.LevelError))

	restarted := make(chan struct{})
	go func() {
		ttylog.RestartProcessor()
		close(restarted)
	}()
	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		suite.FailNow("RestartProcessor blocked after Shutdown")
	}
}

func (suite *CallbackSuite) TestRestartFromCallback() {
	returned := make(chan struct{})
	ttylog.RegisterCallback(ttylog.LevelWarn, func(ttylog.Event) {
		ttylog.RestartProcessor()
		close(returned)
	})

	suite.logger.Warn("restart from inside")

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		suite.FailNow("RestartProcessor inside a callback did not return")
	}
}

func (suite *CallbackSuite) TestRegisterAfterShutdown() {
	ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {})
	ttylog.Shutdown()

	suite.Equal(0, ttylog.CallbackCount(ttylog.LevelInfo))
	suite.False(ttylog.UnregisterCallback(ttylog.LevelInfo, "callback_0_0"))
	suite.NotPanics(func() { suite.logger.Info("nobody listening") })

	var count atomic.Int32
	ttylog.RegisterCallback(ttylog.LevelInfo, func(ttylog.Event) {
		count.Add(1)
	})
	suite.Equal(1, ttylog.CallbackCount(ttylog.LevelInfo))

	suite.logger.Info("listening again")

	suite.Eventually(func() bool { return count.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestCallbackSuite(t *testing.T) {
	suite.Run(t, new(CallbackSuite))
}
