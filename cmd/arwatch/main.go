// Command arwatch connects to a running automatar server and prints its
// event stream. It can also send menu commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	maxBackoff = 30 * time.Second
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Server host:port")
	selectFlag := flag.String("select", "", "Select an animation after connecting, as marker=animation")
	resetFlag := flag.Int("reset", -1, "Forget the stored choice for this marker after connecting")
	frames := flag.Bool("frames", false, "Print every overlay frame change")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	var commands []*protocol.Message
	if *selectFlag != "" {
		msg, err := selectCommand(*selectFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		commands = append(commands, msg)
	}
	if *resetFlag >= 0 {
		msg, _ := protocol.NewMessage(protocol.TypeReset, protocol.ResetCommand{MarkerID: *resetFlag})
		commands = append(commands, msg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := "ws://" + *addr + "/ws/events"
	backoff := time.Second
	for ctx.Err() == nil {
		err := watch(ctx, url, commands, *frames)
		if ctx.Err() != nil {
			break
		}
		log.Warn("connection lost", "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
		commands = nil // only sent on the first connection
	}
}

func selectCommand(arg string) (*protocol.Message, error) {
	markerStr, animID, ok := strings.Cut(arg, "=")
	if !ok || animID == "" {
		return nil, fmt.Errorf("-select wants marker=animation, got %q", arg)
	}
	id, err := strconv.Atoi(strings.TrimSpace(markerStr))
	if err != nil {
		return nil, fmt.Errorf("-select: invalid marker id %q", markerStr)
	}
	return protocol.NewMessage(protocol.TypeSelect, protocol.SelectCommand{MarkerID: id, AnimationID: strings.TrimSpace(animID)})
}

func watch(ctx context.Context, url string, commands []*protocol.Message, frames bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Info("connected", "url", url)

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	}()

	for _, cmd := range commands {
		raw, err := cmd.Bytes()
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Type, err)
		}
	}

	var lastStatus string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("unparseable event", "error", err)
			continue
		}
		line, ok := describe(msg, frames)
		if !ok {
			continue
		}
		// the status line repeats every tick
		if msg.Type == protocol.TypeStatus {
			if line == lastStatus {
				continue
			}
			lastStatus = line
		}
		fmt.Printf("%s  %s\n", time.UnixMilli(msg.Timestamp).Format("15:04:05.000"), line)
	}
}
