// Package main is a load generator for the colony server. It opens many
// WebSocket clients that flip farm toggles and the ignore-rest setting.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/HemogenFarm/internal/network"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	ColonistIDs    []string
	Output         string
}

// Stats tracks what the server sent back.
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Acks             int64
	RateLimited      int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

var cfg Config

var rootCmd = &cobra.Command{
	Use:          "hemofarm-agitator",
	Short:        "Stress the colony server with concurrent WebSocket actions",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TestDuration)
		defer cancel()
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		fmt.Println("=========================================")
		fmt.Println("HEMOFARM AGITATOR")
		fmt.Println("=========================================")
		fmt.Printf("Server: %s\n", cfg.ServerURL)
		fmt.Printf("Clients: %d\n", cfg.NumClients)
		fmt.Printf("Interval: %v\n", cfg.ActionInterval)
		fmt.Printf("Duration: %v\n", cfg.TestDuration)
		fmt.Println("=========================================")

		stats := runStressTest(ctx, cfg)
		return printResults(stats, cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.ServerURL, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	f.IntVar(&cfg.NumClients, "clients", 50, "Number of concurrent clients")
	f.DurationVar(&cfg.ActionInterval, "interval", 250*time.Millisecond, "Action interval per client")
	f.DurationVar(&cfg.TestDuration, "duration", 60*time.Second, "Test duration")
	f.StringSliceVar(&cfg.ColonistIDs, "colonists", []string{"C001", "C002", "P001"}, "Colonist IDs to toggle")
	f.StringVar(&cfg.Output, "out", "stress_test_results.json", "Where to write the JSON summary")
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var g errgroup.Group
	for i := 0; i < config.NumClients; i++ {
		clientID := i
		g.Go(func() error {
			runClient(ctx, clientID, config, stats)
			return nil
		})
		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", config.NumClients)

	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-progress.C:
				fmt.Printf("Progress: sent=%d recv=%d acks=%d limited=%d errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Acks),
					atomic.LoadInt64(&stats.RateLimited),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	_ = g.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client %d: connection failed: %v\n", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go readReplies(conn, stats)

	rng := rand.New(rand.NewSource(int64(clientID)))
	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			action := randomAction(rng, config.ColonistIDs)
			start := time.Now()
			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, time.Since(start))
			stats.mu.Unlock()
		}
	}
}

// readReplies counts ACK and ERROR replies. The server may batch several
// frames into one message, separated by newlines.
func readReplies(conn *websocket.Conn, stats *Stats) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)

			var reply network.ActionReply
			if err := json.Unmarshal(line, &reply); err != nil {
				continue
			}
			switch {
			case reply.Type == "ACK":
				atomic.AddInt64(&stats.Acks, 1)
			case reply.Type == "ERROR" && reply.Error == network.ErrRateLimited.Error():
				atomic.AddInt64(&stats.RateLimited, 1)
			case reply.Type == "ERROR":
				atomic.AddInt64(&stats.Rejected, 1)
			}
		}
	}
}

func randomAction(rng *rand.Rand, colonistIDs []string) network.PlayerAction {
	if len(colonistIDs) == 0 || rng.Intn(10) == 0 {
		v := rng.Intn(2) == 0
		return network.PlayerAction{Type: network.ActionSetIgnoreRest, Value: &v}
	}
	return network.PlayerAction{
		Type:       network.ActionToggleFarm,
		ColonistID: colonistIDs[rng.Intn(len(colonistIDs))],
	}
}

func printResults(stats *Stats, config Config) error {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)
	acks := atomic.LoadInt64(&stats.Acks)
	limited := atomic.LoadInt64(&stats.RateLimited)
	rejected := atomic.LoadInt64(&stats.Rejected)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Acks:              %d\n", acks)
	fmt.Printf("Rate Limited:      %d\n", limited)
	fmt.Printf("Rejected:          %d\n", rejected)
	fmt.Printf("Errors:            %d\n", errs)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		lo, hi := stats.Latencies[0], stats.Latencies[0]
		for _, l := range stats.Latencies {
			total += l
			lo = min(lo, l)
			hi = max(hi, l)
		}
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", lo)
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(stats.Latencies)))
		fmt.Printf("  Max: %v\n", hi)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && rejected == 0:
		fmt.Println("TEST PASSED: System handled the load")
	case float64(errs+rejected)/float64(sent+1) < 0.05:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"acks":               acks,
		"rate_limited":       limited,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(config.Output, jsonData, 0o644); err != nil {
		return err
	}
	fmt.Printf("\nResults saved to %s\n", config.Output)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
