// relay-audit tails the relay's audit events from JetStream.
//
//	go run ./cmd/relay-audit            # forwarded and failed calls
//	go run ./cmd/relay-audit -failed    # failures only
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-chatbot-client/internal/config"
	"ai-chatbot-client/pkg/events"
	pktNats "ai-chatbot-client/pkg/nats"
)

func main() {
	failedOnly := flag.Bool("failed", false, "only show failed upstream calls")
	durable := flag.String("durable", "", "durable consumer name (empty: new events only)")
	flag.Parse()

	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("NATS_URL is not set")
	}

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer sub.Close()

	subject := pktNats.StreamSubject
	if *failedOnly {
		subject = events.TypeRelayFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Listening on %s", subject)
	err = sub.Subscribe(ctx, subject, *durable, func(_ context.Context, event events.Event) error {
		p := event.Payload()
		fmt.Printf("%s %-16s op=%v status=%v request=%v",
			event.Timestamp().Format("15:04:05.000"), event.EventType(), p["operation"], p["status"], p["request_id"])
		if e, ok := p["error"]; ok {
			fmt.Printf(" error=%q", e)
		}
		fmt.Println()
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
}
