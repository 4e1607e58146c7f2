package main

import (
	"net/http"
	"os"
	osSignal "os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestShutdownOnSignals(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})

	for _, sig := range []os.Signal{syscall.SIGTERM, syscall.SIGINT} {
		sig := sig
		t.Run(sig.String(), func(t *testing.T) {
			var registered []os.Signal
			signalNotify = func(ch chan<- os.Signal, sigs ...os.Signal) {
				registered = sigs
				go func() {
					ch <- sig
				}()
			}

			server := &http.Server{}
			called := make(chan struct{}, 1)
			server.RegisterOnShutdown(func() {
				called <- struct{}{}
			})

			shutdown(server, time.Millisecond, zaptest.NewLogger(t))

			select {
			case <-called:
			case <-time.After(time.Second):
				t.Fatalf("expected server shutdown callback to execute")
			}
			if len(registered) == 0 {
				t.Fatalf("expected shutdown to subscribe to signals")
			}
		})
	}
}
