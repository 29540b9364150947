package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/bloodbank/internal/adapter/storage"
	"github.com/rl1809/bloodbank/internal/core/domain"
	"github.com/rl1809/bloodbank/internal/core/report"
	"github.com/rl1809/bloodbank/internal/core/service"
	"github.com/rl1809/bloodbank/internal/logging"
)

func newTestInventory(t *testing.T) (*service.InventoryService, *storage.FileAdapter) {
	t.Helper()
	logging.ConfigureTests()

	repo := storage.NewFileAdapter(filepath.Join(t.TempDir(), "bloodDatabase"))
	svc := service.NewInventoryService(repo, 0)
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, repo
}

func startTestServer(t *testing.T) (*TCPServer, *storage.FileAdapter) {
	t.Helper()
	svc, repo := newTestInventory(t)

	srv := NewTCPServer("127.0.0.1:0", svc)
	if err := srv.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv, repo
}

type testClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, srv *TCPServer) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	return &testClient{conn: conn, reader: bufio.NewReader(conn)}
}

// response reads one reply up to the blank line that ends it.
func (c *testClient) response(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read failed after %q: %v", b.String(), err)
		}
		if line == "\n" {
			return b.String()
		}
		b.WriteString(line)
	}
}

func (c *testClient) send(t *testing.T, line string) string {
	t.Helper()
	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return c.response(t)
}

func TestTCPServer_Greeting(t *testing.T) {
	srv, _ := startTestServer(t)

	first := dial(t, srv).response(t)
	if !strings.HasPrefix(first, "Olá, você é o cliente #0.\n") {
		t.Errorf("unexpected greeting %q", first)
	}
	if !strings.HasSuffix(first, helpText) {
		t.Error("expected greeting to include the command list")
	}

	second := dial(t, srv).response(t)
	if !strings.HasPrefix(second, "Olá, você é o cliente #1.\n") {
		t.Errorf("unexpected greeting %q", second)
	}
}

func TestTCPServer_AddAndList(t *testing.T) {
	srv, repo := startTestServer(t)
	client := dial(t, srv)
	client.response(t)

	got := client.send(t, "adicionar O+, 2")
	want := "Foram adicionados 2.0 litros de sangue do tipo O+ no banco de dados.\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	inv, err := repo.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if inv.Get(domain.OPositive) != 38 {
		t.Errorf("expected O+ stock 38, got %v", inv.Get(domain.OPositive))
	}

	stock := client.send(t, "listar estoque")
	if !strings.Contains(stock, "Total de sangue em estoque: 102.0 litros.") {
		t.Errorf("unexpected stock report %q", stock)
	}
}

func TestTCPServer_RemoveInsufficientStock(t *testing.T) {
	srv, repo := startTestServer(t)
	client := dial(t, srv)
	client.response(t)

	got := client.send(t, "remover AB-, 5")
	if got != msgInsufficientStock+"\n" {
		t.Errorf("expected insufficient stock message, got %q", got)
	}

	inv, err := repo.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if inv.Get(domain.ABNegative) != 0.5 {
		t.Errorf("expected AB- stock 0.5, got %v", inv.Get(domain.ABNegative))
	}
}

func TestTCPServer_ValidationMessages(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dial(t, srv)
	client.response(t)

	cases := map[string]string{
		"adicionar O+ 2":    msgMissingComma,
		"adicionar C+, 2":   msgUnknownType,
		"adicionar O+, abc": msgInvalidValue,
		"remover O+, 0":     msgNonPositiveValue,
		"listar":            msgUnknownCommand,
		"":                  msgUnknownCommand,
		"remover A+, 1":     "Foi removido 1.0 litro de sangue do tipo A+ no banco de dados.",
		"comandos":          strings.TrimSuffix(helpText, "\n"),
		"listar tipos":      strings.TrimSuffix(report.Prevalence(), "\n"),
	}
	for line, want := range cases {
		if got := client.send(t, line); got != want+"\n" {
			t.Errorf("%q: expected %q, got %q", line, want+"\n", got)
		}
	}
}

func TestTCPServer_Disconnect(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dial(t, srv)
	client.response(t)

	if _, err := fmt.Fprintf(client.conn, "desconectar\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := client.reader.ReadString('\n'); err != io.EOF {
		t.Errorf("expected EOF after disconnect, got %v", err)
	}
}

func TestTCPServer_ConcurrentSessions(t *testing.T) {
	srv, repo := startTestServer(t)

	totalClients := 20
	var wg sync.WaitGroup

	for i := 0; i < totalClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
			if err != nil {
				t.Errorf("dial failed: %v", err)
				return
			}
			defer conn.Close()
			conn.SetDeadline(time.Now().Add(10 * time.Second))

			client := &testClient{conn: conn, reader: bufio.NewReader(conn)}
			if err := readUntilBlank(client.reader); err != nil {
				t.Errorf("greeting: %v", err)
				return
			}
			fmt.Fprintf(conn, "adicionar B-, 1\n")
			if err := readUntilBlank(client.reader); err != nil {
				t.Errorf("reply: %v", err)
			}
		}()
	}

	wg.Wait()

	inv, err := repo.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := domain.SeedInventory.Get(domain.BNegative) + float64(totalClients)
	if inv.Get(domain.BNegative) != want {
		t.Errorf("expected B- stock %v, got %v", want, inv.Get(domain.BNegative))
	}
}

func TestTCPServer_StopClosesSessions(t *testing.T) {
	svc, _ := newTestInventory(t)
	srv := NewTCPServer("127.0.0.1:0", svc)
	if err := srv.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	client := dial(t, srv)
	client.response(t)

	if err := srv.Stop(); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Errorf("unexpected wait error: %v", err)
	}

	if _, err := client.reader.ReadString('\n'); err == nil {
		t.Error("expected session to be closed")
	}
}

func readUntilBlank(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if line == "\n" {
			return nil
		}
	}
}

func TestTCPServer_LineTooLongKeepsSession(t *testing.T) {
	srv, repo := startTestServer(t)
	client := dial(t, srv)
	client.response(t)

	long := "adicionar O+, " + strings.Repeat("1", 70000)
	if got := client.send(t, long); got != msgUnknownCommand+"\n" {
		t.Errorf("expected unknown command message, got %q", got)
	}

	got := client.send(t, "adicionar O+, 2")
	want := "Foram adicionados 2.0 litros de sangue do tipo O+ no banco de dados.\n"
	if got != want {
		t.Errorf("expected session to stay usable, got %q", got)
	}

	inv, err := repo.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if inv.Get(domain.OPositive) != 38 {
		t.Errorf("expected O+ stock 38, got %v", inv.Get(domain.OPositive))
	}
}

func TestReadLine(t *testing.T) {
	input := "listar tudo\r\n" + strings.Repeat("x", 40) + "\nremover O+, 1\ncomandos"
	r := bufio.NewReaderSize(strings.NewReader(input), 16)

	want := []struct {
		line string
		err  error
	}{
		{"listar tudo", nil},
		{"", bufio.ErrBufferFull},
		{"remover O+, 1", nil},
		{"comandos", nil},
		{"", io.EOF},
	}
	for i, w := range want {
		line, err := readLine(r)
		if line != w.line || err != w.err {
			t.Errorf("line %d: expected %q (%v), got %q (%v)", i, w.line, w.err, line, err)
		}
	}
}
