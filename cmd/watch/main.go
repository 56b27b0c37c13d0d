// Command watch tails the event stream of a running exchange and prints
// each event as a JSON line. It reconnects automatically if the server
// restarts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"

	"exchange_go/internal/infra"
)

type eventTail struct {
	url string
}

func (t *eventTail) URL() string { return t.url }
func (t *eventTail) ID() string  { return "event-tail" }

func (t *eventTail) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

func (t *eventTail) OnMessage(ctx context.Context, msg []byte) {
	fmt.Println(string(msg))
}

func main() {
	url := flag.String("url", "ws://localhost:8080/events", "event stream endpoint")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := infra.NewStreamWorker(&eventTail{url: *url})
	worker.Start(ctx)

	<-ctx.Done()
	worker.Stop()
}
