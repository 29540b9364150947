package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/bloodbank/internal/logging"
)

const dialTimeout = 5 * time.Second

var cli struct {
	Addr     string `default:"localhost:9898" help:"Server address."`
	Type     string `default:"O+" help:"Blood type to add to."`
	Requests int    `short:"n" default:"50" help:"Number of concurrent clients."`
}

func main() {
	kong.Parse(&cli, kong.Name("stress_test"), kong.Description("Concurrent additions against a running bloodbank server."))
	logging.Init("stress_test", "info")

	addr, bloodType, totalRequests := cli.Addr, cli.Type, cli.Requests

	before, err := stockReport(addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read initial stock")
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(client int) {
			defer wg.Done()

			reply, err := send(addr, fmt.Sprintf("adicionar %s, 1", bloodType))
			if err == nil && strings.HasPrefix(reply, "Foi adicionado") {
				successCount.Add(1)
				return
			}
			if err != nil {
				log.Warn().Int("client", client).Err(err).Msg("request failed")
			}
			failCount.Add(1)
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	after, err := stockReport(addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read final stock")
	}

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Blood Type:       %s\n", bloodType)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")
	fmt.Println("Stock before:")
	fmt.Print(before)
	fmt.Println("Stock after:")
	fmt.Print(after)

	if success == int32(totalRequests) {
		fmt.Printf("PASS: all %d additions applied; %s should be up by %d.0 liters\n", success, bloodType, success)
	} else {
		fmt.Printf("FAIL: expected %d additions, got %d\n", totalRequests, success)
	}
}

// send runs one short session: drain the greeting, send line, read the reply
// and disconnect.
func send(addr, line string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if _, err := readResponse(r); err != nil {
		return "", fmt.Errorf("read greeting: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return "", err
	}
	reply, err := readResponse(r)
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}

	fmt.Fprint(conn, "desconectar\n")
	return reply, nil
}

func stockReport(addr string) (string, error) {
	return send(addr, "listar estoque")
}

// readResponse reads lines up to the blank line that ends every response.
func readResponse(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return b.String(), err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return b.String(), nil
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
